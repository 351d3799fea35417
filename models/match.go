package models

import "time"

// Position is a BP bench. The numeric value is the team slot (1..4).
type Position int

const (
	OpeningGovernment Position = iota + 1
	OpeningOpposition
	ClosingGovernment
	ClosingOpposition
)

var positionNames = map[Position]string{
	OpeningGovernment: "OG",
	OpeningOpposition: "OO",
	ClosingGovernment: "CG",
	ClosingOpposition: "CO",
}

func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return "?"
}

// Positions lists the benches in slot order.
var Positions = [4]Position{OpeningGovernment, OpeningOpposition, ClosingGovernment, ClosingOpposition}

type Match struct {
	ID          int        `json:"id" db:"id"`
	RoundID     int        `json:"round_id" db:"round_id"`
	MatchNumber int        `json:"match_number" db:"match_number"`
	Team1ID     int        `json:"team1_id" db:"team1_id"` // OG
	Team2ID     int        `json:"team2_id" db:"team2_id"` // OO
	Team3ID     int        `json:"team3_id" db:"team3_id"` // CG
	Team4ID     int        `json:"team4_id" db:"team4_id"` // CO
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	JudgeIDs []int `json:"judge_ids,omitempty" db:"-"`
}

// TeamIDs returns the four team slots in OG, OO, CG, CO order.
func (m *Match) TeamIDs() [4]int {
	return [4]int{m.Team1ID, m.Team2ID, m.Team3ID, m.Team4ID}
}

// SetTeamIDs assigns the four slots in OG, OO, CG, CO order.
func (m *Match) SetTeamIDs(ids [4]int) {
	m.Team1ID, m.Team2ID, m.Team3ID, m.Team4ID = ids[0], ids[1], ids[2], ids[3]
}

func (m *Match) IsCompleted() bool {
	return m.CompletedAt != nil
}
