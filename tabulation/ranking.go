package tabulation

import (
	"math"
	"sort"

	"github.com/Dosada05/bp-tabulation/models"
)

// RankedStanding is a standing with its leaderboard position.
type RankedStanding struct {
	Rank int `json:"rank"`
	models.TeamStanding
}

// Better reports whether a ranks above b: team points desc, speaker points
// desc, average speaker points desc, average position asc, team id asc.
func Better(a, b models.TeamStanding) bool {
	if a.TeamPoints != b.TeamPoints {
		return a.TeamPoints > b.TeamPoints
	}
	if a.SpeakerPoints != b.SpeakerPoints {
		return a.SpeakerPoints > b.SpeakerPoints
	}
	if a.AverageSpeakerPoints != b.AverageSpeakerPoints {
		return a.AverageSpeakerPoints > b.AverageSpeakerPoints
	}
	if pa, pb := positionKey(a), positionKey(b); pa != pb {
		return pa < pb
	}
	return a.TeamID < b.TeamID
}

// positionKey treats a team that has not played as the worst average position.
func positionKey(s models.TeamStanding) float64 {
	if s.MatchesPlayed == 0 {
		return math.Inf(1)
	}
	return s.AveragePosition
}

// SortStandings orders standings in place by leaderboard order.
func SortStandings(standings []models.TeamStanding) {
	sort.SliceStable(standings, func(i, j int) bool { return Better(standings[i], standings[j]) })
}

// Rank sorts a copy of standings and numbers it from 1.
func Rank(standings []models.TeamStanding) []RankedStanding {
	sorted := make([]models.TeamStanding, len(standings))
	copy(sorted, standings)
	SortStandings(sorted)
	ranked := make([]RankedStanding, len(sorted))
	for i, s := range sorted {
		ranked[i] = RankedStanding{Rank: i + 1, TeamStanding: s}
	}
	return ranked
}
