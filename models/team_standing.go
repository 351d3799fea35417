package models

import "time"

// StandingScope selects which stages a standing row aggregates.
type StandingScope string

const (
	// ScopeOverall aggregates every stage.
	ScopeOverall StandingScope = "overall"
	// ScopeElimination aggregates Semifinal and Final only.
	ScopeElimination StandingScope = "elimination"
)

func (s StandingScope) Valid() bool {
	return s == ScopeOverall || s == ScopeElimination
}

// Stages returns the stage filter of the scope. Nil means every stage.
func (s StandingScope) Stages() []Stage {
	if s == ScopeElimination {
		return []Stage{StageSemifinal, StageFinal}
	}
	return nil
}

type TeamStanding struct {
	ID                   int           `json:"id" db:"id"`
	CompetitionID        int           `json:"competition_id" db:"competition_id"`
	TeamID               int           `json:"team_id" db:"team_id"`
	Scope                StandingScope `json:"scope" db:"scope"`
	MatchesPlayed        int           `json:"matches_played" db:"matches_played"`
	TeamPoints           int           `json:"team_points" db:"team_points"`
	SpeakerPoints        float64       `json:"speaker_points" db:"speaker_points"`
	AverageSpeakerPoints float64       `json:"average_speaker_points" db:"average_speaker_points"`
	FirstPlaces          int           `json:"first_places" db:"first_places"`
	SecondPlaces         int           `json:"second_places" db:"second_places"`
	ThirdPlaces          int           `json:"third_places" db:"third_places"`
	FourthPlaces         int           `json:"fourth_places" db:"fourth_places"`
	AveragePosition      float64       `json:"average_position" db:"average_position"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// PlacementCount returns the counter for placement 1..4.
func (s *TeamStanding) PlacementCount(placement int) int {
	switch placement {
	case 1:
		return s.FirstPlaces
	case 2:
		return s.SecondPlaces
	case 3:
		return s.ThirdPlaces
	case 4:
		return s.FourthPlaces
	}
	return 0
}
