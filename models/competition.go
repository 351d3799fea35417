package models

import "time"

// Stage представляет этап турнира.
type Stage string

const (
	StagePreliminary Stage = "PRELIMINARY"
	StageSemifinal   Stage = "SEMIFINAL"
	StageFinal       Stage = "FINAL"
	StageComplete    Stage = "COMPLETE"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StagePreliminary, StageSemifinal, StageFinal, StageComplete:
		return true
	}
	return false
}

// IsElimination is true for the stages that feed the final standings.
func (s Stage) IsElimination() bool {
	return s == StageSemifinal || s == StageFinal
}

var stageOrder = map[Stage]int{
	StagePreliminary: 1,
	StageSemifinal:   2,
	StageFinal:       3,
	StageComplete:    4,
}

// Reached reports whether a competition at stage current has entered s.
func (s Stage) Reached(current Stage) bool {
	return stageOrder[s] != 0 && stageOrder[s] <= stageOrder[current]
}

type Competition struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Stage       Stage     `json:"stage" db:"stage"`
	MemberCount int       `json:"member_count" db:"member_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
