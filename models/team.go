package models

import "time"

type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "PENDING"
	TeamStatusVerified TeamStatus = "VERIFIED"
	TeamStatusRejected TeamStatus = "REJECTED"
)

// Team is a registration produced by the registration subsystem.
type Team struct {
	ID            int        `json:"id" db:"id"`
	CompetitionID int        `json:"competition_id" db:"competition_id"`
	Name          string     `json:"name" db:"name"`
	Status        TeamStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// Members in speaking order.
	Members []Member `json:"members,omitempty" db:"-"`
}

// Member is a speaker. Its ID is the participant id scores are keyed by.
type Member struct {
	ID       int    `json:"id" db:"id"`
	TeamID   int    `json:"team_id" db:"team_id"`
	Name     string `json:"name" db:"name"`
	Position int    `json:"position" db:"position"`
}

// MemberIDs returns the participant ids in speaking order.
func (t *Team) MemberIDs() []int {
	ids := make([]int, len(t.Members))
	for i, m := range t.Members {
		ids[i] = m.ID
	}
	return ids
}
