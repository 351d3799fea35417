package brackets

import (
	"context"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

type GenerateTournamentParams struct {
	Competition *models.Competition
	// Teams in submission order.
	Teams  []*models.Team
	Format tabulation.Format
}

type TournamentGenerator interface {
	GenerateTournament(ctx context.Context, params GenerateTournamentParams) ([]*PlannedRound, error)

	GetName() string
}

// PlannedRoom is a room before it is persisted. TeamIDs are in OG, OO, CG, CO order.
type PlannedRoom struct {
	MatchNumber int
	TeamIDs     [4]int
}

type PlannedRound struct {
	Stage       models.Stage
	RoundNumber int
	Session     int
	Rooms       []PlannedRoom
	SittingOut  []int
}
