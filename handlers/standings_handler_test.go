package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/services"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandingsHandlers(t *testing.T) {
	var publicScope, adminScope models.StandingScope
	board := func(id int, scope models.StandingScope) *services.Leaderboard {
		return &services.Leaderboard{
			CompetitionID: id,
			Scope:         scope,
			Standings: []tabulation.RankedStanding{
				{Rank: 1, TeamStanding: models.TeamStanding{TeamID: 4, TeamPoints: 6}},
			},
		}
	}
	h := NewStandingsHandler(&stubStandings{
		public: func(_ context.Context, id int, scope models.StandingScope) (*services.Leaderboard, error) {
			publicScope = scope
			if !scope.Valid() {
				return nil, services.ErrInvalidScope
			}
			return board(id, scope), nil
		},
		list: func(_ context.Context, id int, scope models.StandingScope) (*services.Leaderboard, error) {
			adminScope = scope
			return board(id, scope), nil
		},
		recompute: func(_ context.Context, id int) (*services.RecomputeResult, error) {
			return nil, services.ErrCompetitionNotFound
		},
	})

	t.Run("public defaults to overall", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/competitions/{competitionID}/standings", "/competitions/1/standings", "", h.PublicStandingsHandler)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ScopeOverall, publicScope)
		leaderboard := decodeBody(t, rec)["leaderboard"].(map[string]any)
		assert.Equal(t, "overall", leaderboard["scope"])
	})

	t.Run("public elimination", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/competitions/{competitionID}/standings", "/competitions/1/standings?scope=elimination", "", h.PublicStandingsHandler)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ScopeElimination, publicScope)
	})

	t.Run("invalid scope", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/competitions/{competitionID}/standings", "/competitions/1/standings?scope=weekly", "", h.PublicStandingsHandler)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", errorKind(t, rec))
	})

	t.Run("admin", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/competitions/{competitionID}/standings", "/competitions/1/standings?scope=elimination", "", h.AdminStandingsHandler)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ScopeElimination, adminScope)
	})

	t.Run("recompute unknown competition", func(t *testing.T) {
		rec := serve(t, http.MethodPost, "/competitions/{competitionID}/standings/recompute", "/competitions/9/standings/recompute", "", h.RecomputeHandler)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
