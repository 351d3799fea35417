package models

import "time"

type Round struct {
	ID            int        `json:"id" db:"id"`
	CompetitionID int        `json:"competition_id" db:"competition_id"`
	Stage         Stage      `json:"stage" db:"stage"`
	RoundNumber   int        `json:"round_number" db:"round_number"`
	Session       int        `json:"session" db:"session"`
	Motion        *string    `json:"motion,omitempty" db:"motion"`
	IsFrozen      bool       `json:"is_frozen" db:"is_frozen"`
	FrozenBy      *int       `json:"frozen_by,omitempty" db:"frozen_by"`
	FrozenAt      *time.Time `json:"frozen_at,omitempty" db:"frozen_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	Matches []Match `json:"matches,omitempty" db:"-"`
}
