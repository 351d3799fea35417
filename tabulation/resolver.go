package tabulation

import (
	"fmt"
	"sort"

	"github.com/Dosada05/bp-tabulation/models"
)

// victoryPoints maps a placement to the points it awards.
var victoryPoints = map[int]int{1: 3, 2: 2, 3: 1, 4: 0}

// VictoryPointsFor returns the victory points awarded for placement 1..4.
func VictoryPointsFor(placement int) (int, error) {
	vp, ok := victoryPoints[placement]
	if !ok {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPlacement, placement)
	}
	return vp, nil
}

// RoomTeam is one bench of a room.
type RoomTeam struct {
	TeamID     int             `json:"team_id"`
	Position   models.Position `json:"position"`
	SpeakerIDs []int           `json:"speaker_ids"`
}

// Room is the input of the resolver: four benches and the adjudicator panel.
// With an empty JudgeIDs the panel is taken from the judges present in the scores.
type Room struct {
	MatchID  int
	Teams    [4]RoomTeam
	JudgeIDs []int
}

// NewRoom builds a room from a match and its teams keyed by id.
func NewRoom(match *models.Match, teams map[int]*models.Team) (Room, error) {
	room := Room{MatchID: match.ID, JudgeIDs: match.JudgeIDs}
	for i, teamID := range match.TeamIDs() {
		team, ok := teams[teamID]
		if !ok {
			return Room{}, fmt.Errorf("%w: team %d of match %d not loaded", ErrInvalidRoom, teamID, match.ID)
		}
		room.Teams[i] = RoomTeam{
			TeamID:     teamID,
			Position:   models.Positions[i],
			SpeakerIDs: team.MemberIDs(),
		}
	}
	return room, nil
}

// Seat locates a speaker inside a room.
type Seat struct {
	Slot   int // 0..3
	TeamID int
}

// ParticipantIndex maps participant id to seat. It is built once per match.
type ParticipantIndex map[int]Seat

// Index validates the room shape and returns its participant index.
func (r Room) Index() (ParticipantIndex, error) {
	speakers := len(r.Teams[0].SpeakerIDs)
	if speakers == 0 {
		return nil, fmt.Errorf("%w: match %d has a team without speakers", ErrInvalidRoom, r.MatchID)
	}
	index := make(ParticipantIndex, 4*speakers)
	seenTeams := make(map[int]bool, 4)
	for slot, team := range r.Teams {
		if team.TeamID == 0 || seenTeams[team.TeamID] {
			return nil, fmt.Errorf("%w: match %d slot %d", ErrInvalidRoom, r.MatchID, slot+1)
		}
		seenTeams[team.TeamID] = true
		if len(team.SpeakerIDs) != speakers {
			return nil, fmt.Errorf("%w: team %d has %d speakers, expected %d", ErrInvalidRoom, team.TeamID, len(team.SpeakerIDs), speakers)
		}
		for _, pid := range team.SpeakerIDs {
			if _, dup := index[pid]; dup {
				return nil, fmt.Errorf("%w: participant %d seated twice in match %d", ErrInvalidRoom, pid, r.MatchID)
			}
			index[pid] = Seat{Slot: slot, TeamID: team.TeamID}
		}
	}
	return index, nil
}

// SpeakerTotal is a speaker's score summed over the panel.
type SpeakerTotal struct {
	ParticipantID int     `json:"participant_id"`
	TeamID        int     `json:"team_id"`
	Total         float64 `json:"total"`
	Rank          int     `json:"rank"`
}

// Placement is one team's outcome in a match.
type Placement struct {
	TeamID             int             `json:"team_id"`
	Position           models.Position `json:"position"`
	TeamTotal          float64         `json:"team_total"`
	AverageSpeakerRank float64         `json:"average_speaker_rank"`
	Rank               int             `json:"rank"`
	VictoryPoints      int             `json:"victory_points"`
}

// MatchResult holds the placements in rank order.
type MatchResult struct {
	MatchID    int            `json:"match_id"`
	JudgeCount int            `json:"judge_count"`
	Placements [4]Placement   `json:"placements"`
	Speakers   []SpeakerTotal `json:"speakers"`
}

// PlacementFor returns the placement of teamID.
func (m MatchResult) PlacementFor(teamID int) (Placement, bool) {
	for _, p := range m.Placements {
		if p.TeamID == teamID {
			return p, true
		}
	}
	return Placement{}, false
}

// CheckScores verifies the score set is exactly one score per speaker per judge
// and returns the panel the check ran against.
func CheckScores(room Room, index ParticipantIndex, scores []models.Score) ([]int, error) {
	judges := room.JudgeIDs
	if len(judges) == 0 {
		judges = distinctJudges(scores)
	}
	if len(judges) == 0 {
		return nil, fmt.Errorf("%w: match %d has no scores", ErrScoreIncomplete, room.MatchID)
	}
	panel := make(map[int]bool, len(judges))
	for _, j := range judges {
		panel[j] = true
	}

	type key struct{ participant, judge int }
	seen := make(map[key]bool, len(scores))
	for _, s := range scores {
		if _, ok := index[s.ParticipantID]; !ok {
			return nil, fmt.Errorf("%w: participant %d, match %d", ErrUnknownParticipant, s.ParticipantID, room.MatchID)
		}
		if !panel[s.JudgeID] {
			return nil, fmt.Errorf("%w: judge %d, match %d", ErrUnexpectedJudge, s.JudgeID, room.MatchID)
		}
		k := key{s.ParticipantID, s.JudgeID}
		if seen[k] {
			return nil, fmt.Errorf("%w: participant %d, judge %d", ErrDuplicateScore, s.ParticipantID, s.JudgeID)
		}
		seen[k] = true
	}

	expected := len(index) * len(judges)
	if len(scores) != expected {
		return nil, fmt.Errorf("%w: match %d has %d of %d scores", ErrScoreIncomplete, room.MatchID, len(scores), expected)
	}
	return judges, nil
}

// ResolveMatch ranks the four teams of a fully scored room.
//
// Teams are ordered by team total (all judges, all speakers) descending. Equal
// totals fall back to the average speaker rank inside the room (lower first),
// then to bench order OG, OO, CG, CO.
func ResolveMatch(room Room, scores []models.Score) (MatchResult, error) {
	index, err := room.Index()
	if err != nil {
		return MatchResult{}, err
	}
	judges, err := CheckScores(room, index, scores)
	if err != nil {
		return MatchResult{}, err
	}

	speakerTotals := make(map[int]float64, len(index))
	var teamTotals [4]float64
	for _, s := range scores {
		seat := index[s.ParticipantID]
		speakerTotals[s.ParticipantID] += s.Value
		teamTotals[seat.Slot] += s.Value
	}

	speakers := rankSpeakers(index, speakerTotals)
	var rankSums [4]float64
	for _, sp := range speakers {
		rankSums[index[sp.ParticipantID].Slot] += float64(sp.Rank)
	}

	placements := make([]Placement, 4)
	for slot, team := range room.Teams {
		placements[slot] = Placement{
			TeamID:             team.TeamID,
			Position:           models.Positions[slot],
			TeamTotal:          teamTotals[slot],
			AverageSpeakerRank: rankSums[slot] / float64(len(team.SpeakerIDs)),
		}
	}
	sort.SliceStable(placements, func(i, j int) bool {
		a, b := placements[i], placements[j]
		if a.TeamTotal != b.TeamTotal {
			return a.TeamTotal > b.TeamTotal
		}
		if a.AverageSpeakerRank != b.AverageSpeakerRank {
			return a.AverageSpeakerRank < b.AverageSpeakerRank
		}
		return a.Position < b.Position
	})

	result := MatchResult{MatchID: room.MatchID, JudgeCount: len(judges), Speakers: speakers}
	for i := range placements {
		placements[i].Rank = i + 1
		placements[i].VictoryPoints = victoryPoints[i+1]
		result.Placements[i] = placements[i]
	}
	return result, nil
}

// rankSpeakers orders speakers by total descending; equal totals share a rank.
func rankSpeakers(index ParticipantIndex, totals map[int]float64) []SpeakerTotal {
	speakers := make([]SpeakerTotal, 0, len(index))
	for pid, seat := range index {
		speakers = append(speakers, SpeakerTotal{ParticipantID: pid, TeamID: seat.TeamID, Total: totals[pid]})
	}
	sort.Slice(speakers, func(i, j int) bool {
		if speakers[i].Total != speakers[j].Total {
			return speakers[i].Total > speakers[j].Total
		}
		return speakers[i].ParticipantID < speakers[j].ParticipantID
	})
	for i := range speakers {
		if i > 0 && speakers[i].Total == speakers[i-1].Total {
			speakers[i].Rank = speakers[i-1].Rank
		} else {
			speakers[i].Rank = i + 1
		}
	}
	return speakers
}

func distinctJudges(scores []models.Score) []int {
	seen := make(map[int]bool)
	judges := make([]int, 0)
	for _, s := range scores {
		if !seen[s.JudgeID] {
			seen[s.JudgeID] = true
			judges = append(judges, s.JudgeID)
		}
	}
	sort.Ints(judges)
	return judges
}
