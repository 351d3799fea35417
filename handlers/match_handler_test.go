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

func TestSubmitScoresHandler(t *testing.T) {
	var gotJudge, gotMatch int
	var gotInput services.SubmitScoresInput
	h := NewMatchHandler(&stubMatches{
		submit: func(_ context.Context, matchID, judgeID int, input services.SubmitScoresInput) ([]models.Score, error) {
			gotMatch, gotJudge, gotInput = matchID, judgeID, input
			if judgeID == 13 {
				return nil, services.ErrDuplicateJudgeScore
			}
			return []models.Score{{MatchID: matchID, JudgeID: judgeID, ParticipantID: 11, Value: 75}}, nil
		},
	})
	const pattern = "/matches/{matchID}/scores"
	body := `{"scores":[{"participant_id":11,"value":75}]}`

	t.Run("judge from token", func(t *testing.T) {
		rec := serve(t, http.MethodPost, pattern, "/matches/9/scores", body, h.SubmitScoresHandler, asUser(7, models.RoleJudge))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, 9, gotMatch)
		assert.Equal(t, 7, gotJudge)
		require.Len(t, gotInput.Scores, 1)
		assert.Equal(t, 75.0, gotInput.Scores[0].Value)
	})

	t.Run("update answers 200", func(t *testing.T) {
		rec := serve(t, http.MethodPost, pattern, "/matches/9/scores", `{"scores":[{"participant_id":11,"value":76}],"update":true}`, h.SubmitScoresHandler, asUser(7, models.RoleJudge))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gotInput.Update)
	})

	t.Run("duplicate", func(t *testing.T) {
		rec := serve(t, http.MethodPost, pattern, "/matches/9/scores", body, h.SubmitScoresHandler, asUser(13, models.RoleJudge))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "duplicate_score", errorKind(t, rec))
	})

	t.Run("no claims", func(t *testing.T) {
		rec := serve(t, http.MethodPost, pattern, "/matches/9/scores", body, h.SubmitScoresHandler)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCompleteHandler(t *testing.T) {
	h := NewMatchHandler(&stubMatches{
		complete: func(_ context.Context, matchID int) (*tabulation.MatchResult, error) {
			switch matchID {
			case 1:
				return &tabulation.MatchResult{MatchID: 1, JudgeCount: 3}, nil
			case 2:
				return nil, services.ErrScoreIncomplete
			default:
				return nil, services.ErrMatchAlreadyCompleted
			}
		},
	})
	const pattern = "/matches/{matchID}/complete"

	rec := serve(t, http.MethodPost, pattern, "/matches/1/complete", "", h.CompleteHandler)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody(t, rec)["result"].(map[string]any)
	assert.EqualValues(t, 3, result["judge_count"])

	rec = serve(t, http.MethodPost, pattern, "/matches/2/complete", "", h.CompleteHandler)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "score_incomplete", errorKind(t, rec))

	rec = serve(t, http.MethodPost, pattern, "/matches/3/complete", "", h.CompleteHandler)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "match_completed", errorKind(t, rec))
}

func TestAssignJudgesHandler(t *testing.T) {
	var got []int
	h := NewMatchHandler(&stubMatches{
		assign: func(_ context.Context, matchID int, judgeIDs []int) (*models.Match, error) {
			got = judgeIDs
			return &models.Match{ID: matchID, JudgeIDs: judgeIDs}, nil
		},
	})

	rec := serve(t, http.MethodPut, "/matches/{matchID}/judges", "/matches/5/judges", `{"judge_ids":[3,7]}`, h.AssignJudgesHandler)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{3, 7}, got)

	rec = serve(t, http.MethodPut, "/matches/{matchID}/judges", "/matches/5/judges", `{"judges":[3]}`, h.AssignJudgesHandler)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoomHandler(t *testing.T) {
	h := NewMatchHandler(&stubMatches{
		create: func(_ context.Context, roundID int, input services.CreateRoomInput) (*models.Match, error) {
			if input.MatchNumber == 1 {
				return nil, services.ErrRoomConflict
			}
			return &models.Match{ID: 40, RoundID: roundID, MatchNumber: 3}, nil
		},
	})
	const pattern = "/rounds/{roundID}/matches"

	rec := serve(t, http.MethodPost, pattern, "/rounds/2/matches", `{"team_ids":[1,2,3,4]}`, h.CreateRoomHandler)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	match := decodeBody(t, rec)["match"].(map[string]any)
	assert.EqualValues(t, 2, match["round_id"])

	rec = serve(t, http.MethodPost, pattern, "/rounds/2/matches", `{"match_number":1,"team_ids":[1,2,3,4]}`, h.CreateRoomHandler)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReopenHandler(t *testing.T) {
	h := NewMatchHandler(&stubMatches{
		reopen: func(_ context.Context, matchID int) (*models.Match, error) {
			return nil, services.ErrMatchNotCompleted
		},
	})

	rec := serve(t, http.MethodPost, "/matches/{matchID}/reopen", "/matches/5/reopen", "", h.ReopenHandler)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "match_not_completed", errorKind(t, rec))
}
