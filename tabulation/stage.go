package tabulation

import (
	"fmt"

	"github.com/Dosada05/bp-tabulation/models"
)

// Format declares the shape of a tournament.
type Format struct {
	PreliminaryRounds    int `yaml:"preliminary_rounds" json:"preliminary_rounds"`
	SemifinalRounds      int `yaml:"semifinal_rounds" json:"semifinal_rounds"`
	FinalRounds          int `yaml:"final_rounds" json:"final_rounds"`
	SemifinalCut         int `yaml:"semifinal_cut" json:"semifinal_cut"`
	FinalCut             int `yaml:"final_cut" json:"final_cut"`
	MinTeams             int `yaml:"min_teams" json:"min_teams"`
	MinTeamsForSemifinal int `yaml:"min_teams_for_semifinal" json:"min_teams_for_semifinal"`
}

// DefaultFormat is four preliminary rounds, one semifinal round of two rooms
// (top 8) and a single grand-final round (up to 16 teams).
func DefaultFormat() Format {
	return Format{
		PreliminaryRounds:    4,
		SemifinalRounds:      1,
		FinalRounds:          1,
		SemifinalCut:         8,
		FinalCut:             16,
		MinTeams:             4,
		MinTeamsForSemifinal: 8,
	}
}

func (f Format) Validate() error {
	switch {
	case f.PreliminaryRounds < 1:
		return fmt.Errorf("%w: preliminary_rounds must be at least 1", ErrInvalidFormat)
	case f.SemifinalRounds < 1, f.FinalRounds < 1:
		return fmt.Errorf("%w: semifinal_rounds and final_rounds must be at least 1", ErrInvalidFormat)
	case f.MinTeams < 4:
		return fmt.Errorf("%w: min_teams must be at least 4", ErrInvalidFormat)
	case f.SemifinalCut < 4 || f.SemifinalCut%4 != 0:
		return fmt.Errorf("%w: semifinal_cut must be a positive multiple of 4", ErrInvalidFormat)
	case f.FinalCut < 4 || f.FinalCut%4 != 0:
		return fmt.Errorf("%w: final_cut must be a positive multiple of 4", ErrInvalidFormat)
	case f.MinTeamsForSemifinal < f.MinTeams:
		return fmt.Errorf("%w: min_teams_for_semifinal below min_teams", ErrInvalidFormat)
	}
	return nil
}

// RequiredRounds returns how many rounds a stage must hold before it can complete.
func (f Format) RequiredRounds(stage models.Stage) int {
	switch stage {
	case models.StagePreliminary:
		return f.PreliminaryRounds
	case models.StageSemifinal:
		return f.SemifinalRounds
	case models.StageFinal:
		return f.FinalRounds
	}
	return 0
}

// Cut returns the number of teams that advance into stage.
func (f Format) Cut(stage models.Stage) int {
	switch stage {
	case models.StageSemifinal:
		return f.SemifinalCut
	case models.StageFinal:
		return f.FinalCut
	}
	return 0
}

var nextStage = map[models.Stage]models.Stage{
	models.StagePreliminary: models.StageSemifinal,
	models.StageSemifinal:   models.StageFinal,
	models.StageFinal:       models.StageComplete,
}

// NextStage returns the stage that follows current.
func NextStage(current models.Stage) (models.Stage, error) {
	next, ok := nextStage[current]
	if !ok {
		return "", fmt.Errorf("%w: stage %s", ErrNoNextStage, current)
	}
	return next, nil
}

// RoundProgress pairs a round with its matches.
type RoundProgress struct {
	Round   models.Round
	Matches []models.Match
}

// IsStageComplete is true when the stage holds at least the required number
// of distinct round numbers, every such round has matches, and every match
// has completedAt set. Frozen flags play no part.
func IsStageComplete(f Format, stage models.Stage, rounds []RoundProgress) bool {
	required := f.RequiredRounds(stage)
	if required == 0 {
		return false
	}
	numbers := make(map[int]bool)
	for _, rp := range rounds {
		if rp.Round.Stage != stage {
			continue
		}
		if len(rp.Matches) == 0 {
			return false
		}
		for _, m := range rp.Matches {
			if m.CompletedAt == nil {
				return false
			}
		}
		numbers[rp.Round.RoundNumber] = true
	}
	return len(numbers) >= required
}

// SelectAdvancing takes the best teams from ranked standings. The count is
// cut bounded by the number of standings and truncated to a multiple of 4.
func SelectAdvancing(ranked []RankedStanding, cut int) ([]int, error) {
	n := cut
	if len(ranked) < n {
		n = len(ranked)
	}
	n -= n % 4
	if n < 4 {
		return nil, fmt.Errorf("%w: %d teams available", ErrNotEnoughTeams, len(ranked))
	}
	ids := make([]int, n)
	for i := 0; i < n; i++ {
		ids[i] = ranked[i].TeamID
	}
	return ids, nil
}

// BlockSeed splits teams, already in rank order, into rooms of four:
// ranks 1-4 to room 1, 5-8 to room 2 and so on. Inside a room the benches are
// filled in rank order (OG, OO, CG, CO).
func BlockSeed(teamIDs []int) ([][4]int, error) {
	if len(teamIDs) == 0 || len(teamIDs)%4 != 0 {
		return nil, fmt.Errorf("%w: %d teams cannot be split into rooms of four", ErrNotEnoughTeams, len(teamIDs))
	}
	rooms := make([][4]int, 0, len(teamIDs)/4)
	for i := 0; i < len(teamIDs); i += 4 {
		rooms = append(rooms, [4]int{teamIDs[i], teamIDs[i+1], teamIDs[i+2], teamIDs[i+3]})
	}
	return rooms, nil
}
