package tabulation

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/bp-tabulation/models"
)

// ApplyMatchResult folds one match outcome into a standing and returns the
// updated copy. It must be called once per (team, match).
func ApplyMatchResult(standing models.TeamStanding, teamTotal float64, victoryPoints, placement int) (models.TeamStanding, error) {
	switch placement {
	case 1:
		standing.FirstPlaces++
	case 2:
		standing.SecondPlaces++
	case 3:
		standing.ThirdPlaces++
	case 4:
		standing.FourthPlaces++
	default:
		return standing, fmt.Errorf("%w: got %d", ErrInvalidPlacement, placement)
	}
	standing.MatchesPlayed++
	standing.TeamPoints += victoryPoints
	standing.SpeakerPoints += teamTotal
	standing.AverageSpeakerPoints = standing.SpeakerPoints / float64(standing.MatchesPlayed)

	weighted := standing.FirstPlaces + 2*standing.SecondPlaces + 3*standing.ThirdPlaces + 4*standing.FourthPlaces
	standing.AveragePosition = float64(weighted) / float64(standing.MatchesPlayed)
	return standing, nil
}

// ApplyPlacement folds a resolver placement into a standing.
func ApplyPlacement(standing models.TeamStanding, p Placement) (models.TeamStanding, error) {
	return ApplyMatchResult(standing, p.TeamTotal, p.VictoryPoints, p.Rank)
}

// CompletedMatch is a resolved match together with the data the recompute
// path filters and orders by.
type CompletedMatch struct {
	MatchID     int
	RoundID     int
	Stage       models.Stage
	CompletedAt time.Time
	Result      MatchResult
}

// ZeroStanding returns a fresh standing row.
func ZeroStanding(competitionID, teamID int, scope models.StandingScope) models.TeamStanding {
	return models.TeamStanding{CompetitionID: competitionID, TeamID: teamID, Scope: scope}
}

// RecomputeStandings rebuilds every team's standing from match history.
//
// All teams in teamIDs start from zero; matches outside the scope's stages are
// skipped; the rest are replayed in ascending completion time (match id breaks
// ties). The result is ordered by team id, so two runs over the same history
// are identical.
func RecomputeStandings(competitionID int, teamIDs []int, scope models.StandingScope, matches []CompletedMatch) ([]models.TeamStanding, error) {
	byTeam := make(map[int]*models.TeamStanding, len(teamIDs))
	for _, id := range teamIDs {
		s := ZeroStanding(competitionID, id, scope)
		byTeam[id] = &s
	}

	replay := FilterByStages(matches, scope.Stages())
	SortByCompletion(replay)

	for _, m := range replay {
		for _, p := range m.Result.Placements {
			current, ok := byTeam[p.TeamID]
			if !ok {
				s := ZeroStanding(competitionID, p.TeamID, scope)
				current = &s
				byTeam[p.TeamID] = current
			}
			updated, err := ApplyPlacement(*current, p)
			if err != nil {
				return nil, fmt.Errorf("match %d team %d: %w", m.MatchID, p.TeamID, err)
			}
			*current = updated
		}
	}

	standings := make([]models.TeamStanding, 0, len(byTeam))
	for _, s := range byTeam {
		standings = append(standings, *s)
	}
	sort.Slice(standings, func(i, j int) bool { return standings[i].TeamID < standings[j].TeamID })
	return standings, nil
}

// FilterByStages keeps the matches whose stage is in stages. A nil filter keeps all.
func FilterByStages(matches []CompletedMatch, stages []models.Stage) []CompletedMatch {
	out := make([]CompletedMatch, 0, len(matches))
	if stages == nil {
		return append(out, matches...)
	}
	allowed := make(map[models.Stage]bool, len(stages))
	for _, s := range stages {
		allowed[s] = true
	}
	for _, m := range matches {
		if allowed[m.Stage] {
			out = append(out, m)
		}
	}
	return out
}

// SortByCompletion orders matches by completion time, then match id.
func SortByCompletion(matches []CompletedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CompletedAt.Equal(matches[j].CompletedAt) {
			return matches[i].CompletedAt.Before(matches[j].CompletedAt)
		}
		return matches[i].MatchID < matches[j].MatchID
	})
}
