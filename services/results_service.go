package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"golang.org/x/sync/errgroup"
)

type JudgeScore struct {
	JudgeID int     `json:"judge_id"`
	Value   float64 `json:"value"`
}

type SpeakerResult struct {
	ParticipantID int          `json:"participant_id"`
	Name          string       `json:"name"`
	Scores        []JudgeScore `json:"scores"`
	Total         float64      `json:"total"`
	Rank          int          `json:"rank,omitempty"`
}

type TeamResult struct {
	TeamID        int             `json:"team_id"`
	Name          string          `json:"name"`
	Position      string          `json:"position"`
	Speakers      []SpeakerResult `json:"speakers"`
	TeamTotal     float64         `json:"team_total"`
	Rank          int             `json:"rank,omitempty"`
	VictoryPoints int             `json:"victory_points"`
}

// RoomResult is one match as the results page shows it. Rank and victory
// points are filled only for completed matches.
type RoomResult struct {
	MatchID     int          `json:"match_id"`
	RoundID     int          `json:"round_id"`
	MatchNumber int          `json:"match_number"`
	Completed   bool         `json:"completed"`
	JudgeIDs    []int        `json:"judge_ids"`
	Teams       []TeamResult `json:"teams"`
}

type RoundResults struct {
	Round *models.Round `json:"round"`
	Rooms []RoomResult  `json:"rooms"`
}

type ResultsService interface {
	// RoundResults fails with ErrResultsWithheld for a frozen round unless
	// privileged is set.
	RoundResults(ctx context.Context, roundID int, privileged bool) (*RoundResults, error)
	MatchResults(ctx context.Context, matchID int, privileged bool) (*RoomResult, error)
}

type resultsService struct {
	repos Repositories
}

func NewResultsService(repos Repositories) ResultsService {
	return &resultsService{repos: repos}
}

func (s *resultsService) RoundResults(ctx context.Context, roundID int, privileged bool) (*RoundResults, error) {
	round, err := s.repos.Rounds.GetByID(ctx, nil, roundID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if tabulation.Withheld(*round, privileged) {
		return nil, ErrResultsWithheld
	}
	matches, err := s.repos.Matches.ListByRound(ctx, nil, roundID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.buildRooms(ctx, matches)
	if err != nil {
		return nil, err
	}
	return &RoundResults{Round: round, Rooms: rooms}, nil
}

func (s *resultsService) MatchResults(ctx context.Context, matchID int, privileged bool) (*RoomResult, error) {
	match, err := s.repos.Matches.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	round, err := s.repos.Rounds.GetByID(ctx, nil, match.RoundID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if tabulation.Withheld(*round, privileged) {
		return nil, ErrResultsWithheld
	}
	rooms, err := s.buildRooms(ctx, []*models.Match{match})
	if err != nil {
		return nil, err
	}
	return &rooms[0], nil
}

func (s *resultsService) buildRooms(ctx context.Context, matches []*models.Match) ([]RoomResult, error) {
	matchIDs := make([]int, len(matches))
	teamIDs := make([]int, 0, 4*len(matches))
	for i, m := range matches {
		matchIDs[i] = m.ID
		ids := m.TeamIDs()
		teamIDs = append(teamIDs, ids[:]...)
	}

	var (
		judges map[int][]int
		teams  map[int]*models.Team
		scores = make([][]models.Score, len(matches))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		judges, err = s.repos.Matches.ListJudges(gctx, nil, matchIDs)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.repos.Teams.ListByIDs(gctx, nil, teamIDs)
		return err
	})
	for i, m := range matches {
		i, m := i, m
		g.Go(func() error {
			var err error
			scores[i], err = s.repos.Scores.ListByMatch(gctx, nil, m.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rooms := make([]RoomResult, len(matches))
	for i, m := range matches {
		m.JudgeIDs = judges[m.ID]
		room, err := buildRoom(m, teams, scores[i])
		if err != nil {
			return nil, err
		}
		rooms[i] = room
	}
	return rooms, nil
}

func buildRoom(m *models.Match, teams map[int]*models.Team, scores []models.Score) (RoomResult, error) {
	out := RoomResult{
		MatchID:     m.ID,
		RoundID:     m.RoundID,
		MatchNumber: m.MatchNumber,
		Completed:   m.IsCompleted(),
		JudgeIDs:    m.JudgeIDs,
	}
	if out.JudgeIDs == nil {
		out.JudgeIDs = []int{}
	}

	byParticipant := make(map[int][]JudgeScore)
	totals := make(map[int]float64)
	for _, sc := range scores {
		byParticipant[sc.ParticipantID] = append(byParticipant[sc.ParticipantID], JudgeScore{JudgeID: sc.JudgeID, Value: sc.Value})
		totals[sc.ParticipantID] += sc.Value
	}

	var result *tabulation.MatchResult
	if m.IsCompleted() {
		room, err := tabulation.NewRoom(m, teams)
		if err != nil {
			return RoomResult{}, handleTabulationError(err)
		}
		resolved, err := tabulation.ResolveMatch(room, scores)
		if err != nil {
			return RoomResult{}, fmt.Errorf("completed match %d: %w", m.ID, err)
		}
		result = &resolved
	}
	speakerRanks := make(map[int]int)
	if result != nil {
		for _, sp := range result.Speakers {
			speakerRanks[sp.ParticipantID] = sp.Rank
		}
	}

	for slot, teamID := range m.TeamIDs() {
		tr := TeamResult{TeamID: teamID, Position: models.Positions[slot].String(), Speakers: []SpeakerResult{}}
		team := teams[teamID]
		if team != nil {
			tr.Name = team.Name
			for _, member := range team.Members {
				js := byParticipant[member.ID]
				sort.Slice(js, func(a, b int) bool { return js[a].JudgeID < js[b].JudgeID })
				if js == nil {
					js = []JudgeScore{}
				}
				tr.Speakers = append(tr.Speakers, SpeakerResult{
					ParticipantID: member.ID,
					Name:          member.Name,
					Scores:        js,
					Total:         totals[member.ID],
					Rank:          speakerRanks[member.ID],
				})
				tr.TeamTotal += totals[member.ID]
			}
		}
		if result != nil {
			if p, ok := result.PlacementFor(teamID); ok {
				tr.TeamTotal = p.TeamTotal
				tr.Rank = p.Rank
				tr.VictoryPoints = p.VictoryPoints
			}
		}
		out.Teams = append(out.Teams, tr)
	}
	return out, nil
}
