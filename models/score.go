package models

import "time"

// Score is one judge's mark for one speaker in one match.
type Score struct {
	ID            int       `json:"id" db:"id"`
	MatchID       int       `json:"match_id" db:"match_id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	JudgeID       int       `json:"judge_id" db:"judge_id"`
	Value         float64   `json:"value" db:"value"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
