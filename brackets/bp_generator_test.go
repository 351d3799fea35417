package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTeams(n int) []*models.Team {
	teams := make([]*models.Team, n)
	for i := range teams {
		teams[i] = &models.Team{ID: i + 1, Status: models.TeamStatusVerified}
	}
	return teams
}

// reverseShuffle is a deterministic stand-in for rand.Shuffle.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func generate(t *testing.T, n int) []*PlannedRound {
	t.Helper()
	g := NewBPGenerator(reverseShuffle)
	rounds, err := g.GenerateTournament(context.Background(), GenerateTournamentParams{
		Competition: &models.Competition{ID: 1},
		Teams:       makeTeams(n),
		Format:      tabulation.DefaultFormat(),
	})
	require.NoError(t, err)
	return rounds
}

func countStages(rounds []*PlannedRound) map[models.Stage]int {
	out := map[models.Stage]int{}
	for _, r := range rounds {
		out[r.Stage]++
	}
	return out
}

func TestGenerateTournament_RoundShape(t *testing.T) {
	tests := []struct {
		teams     int
		semifinal int
	}{
		{4, 0},
		{7, 0},
		{8, 1},
		{18, 1},
	}
	for _, tt := range tests {
		rounds := generate(t, tt.teams)
		stages := countStages(rounds)
		assert.Equal(t, 4, stages[models.StagePreliminary], "teams=%d", tt.teams)
		assert.Equal(t, tt.semifinal, stages[models.StageSemifinal], "teams=%d", tt.teams)
		assert.Equal(t, 1, stages[models.StageFinal], "teams=%d", tt.teams)
	}
}

func TestGenerateTournament_PreliminaryRoundsSeatEveryTeamOnce(t *testing.T) {
	rounds := generate(t, 10)
	for _, r := range rounds {
		if r.Stage != models.StagePreliminary {
			continue
		}
		seen := map[int]int{}
		for i, room := range r.Rooms {
			assert.Equal(t, i+1, room.MatchNumber)
			for _, id := range room.TeamIDs {
				seen[id]++
			}
		}
		for _, id := range r.SittingOut {
			seen[id]++
		}
		assert.Len(t, r.Rooms, 2)
		assert.Len(t, r.SittingOut, 2)
		assert.Len(t, seen, 10, "round %d", r.RoundNumber)
		for id, n := range seen {
			assert.Equal(t, 1, n, "round %d team %d", r.RoundNumber, id)
		}
	}
}

func TestGenerateTournament_SitOutRotates(t *testing.T) {
	rounds := generate(t, 10)
	assert.Equal(t, []int{1, 2}, rounds[1].SittingOut)
	assert.Equal(t, []int{3, 4}, rounds[2].SittingOut)
	assert.Equal(t, []int{5, 6}, rounds[3].SittingOut)
}

func TestGenerateTournament_FirstRoundUsesShuffle(t *testing.T) {
	rounds := generate(t, 8)
	first := rounds[0]
	require.Equal(t, 1, first.RoundNumber)
	assert.Equal(t, [4]int{8, 7, 6, 5}, first.Rooms[0].TeamIDs)
	assert.Equal(t, [4]int{4, 3, 2, 1}, first.Rooms[1].TeamIDs)
}

func TestGenerateTournament_BenchesRotate(t *testing.T) {
	rounds := generate(t, 8)
	assert.Equal(t, [4]int{2, 3, 4, 1}, rounds[1].Rooms[0].TeamIDs)
	assert.Equal(t, [4]int{3, 4, 1, 2}, rounds[2].Rooms[0].TeamIDs)
	assert.Equal(t, [4]int{4, 1, 2, 3}, rounds[3].Rooms[0].TeamIDs)
}

func TestGenerateTournament_ProvisionalEliminationDraws(t *testing.T) {
	rounds := generate(t, 18)
	var semi, final *PlannedRound
	for _, r := range rounds {
		switch r.Stage {
		case models.StageSemifinal:
			semi = r
		case models.StageFinal:
			final = r
		}
	}
	require.NotNil(t, semi)
	require.NotNil(t, final)
	assert.Len(t, semi.Rooms, 2)
	assert.Len(t, final.Rooms, 4)
}

func TestGenerateTournament_InsufficientTeams(t *testing.T) {
	g := NewBPGenerator(nil)
	_, err := g.GenerateTournament(context.Background(), GenerateTournamentParams{
		Teams:  makeTeams(3),
		Format: tabulation.DefaultFormat(),
	})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestGenerateTournament_ThreeRoundFinal(t *testing.T) {
	f := tabulation.DefaultFormat()
	f.FinalRounds = 3
	rounds, err := NewBPGenerator(reverseShuffle).GenerateTournament(context.Background(), GenerateTournamentParams{
		Teams:  makeTeams(8),
		Format: f,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, countStages(rounds)[models.StageFinal])
}

func TestSeededRound(t *testing.T) {
	seeds := [][4]int{{1, 2, 3, 4}, {5, 6, 7, 8}}

	first := SeededRound(models.StageSemifinal, 1, seeds)
	require.Len(t, first.Rooms, 2)
	assert.Equal(t, 2, first.Rooms[1].MatchNumber)
	assert.Equal(t, [4]int{5, 6, 7, 8}, first.Rooms[1].TeamIDs)
	assert.Empty(t, first.SittingOut)

	second := SeededRound(models.StageFinal, 2, seeds)
	assert.Equal(t, models.StageFinal, second.Stage)
	assert.Equal(t, [4]int{2, 3, 4, 1}, second.Rooms[0].TeamIDs)
}
