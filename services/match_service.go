package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

const (
	MinSpeakerScore = 50.0
	MaxSpeakerScore = 100.0
)

type ScoreEntry struct {
	ParticipantID int     `json:"participant_id"`
	Value         float64 `json:"value"`
}

type SubmitScoresInput struct {
	Scores []ScoreEntry `json:"scores"`
	// Update replaces scores the judge already submitted instead of failing.
	Update bool `json:"update"`
}

type CreateRoomInput struct {
	// MatchNumber 0 takes the next free number in the round.
	MatchNumber int        `json:"match_number"`
	TeamIDs     [4]int     `json:"team_ids"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type MatchCompletedPayload struct {
	CompetitionID int                    `json:"competition_id"`
	RoundID       int                    `json:"round_id"`
	Result        tabulation.MatchResult `json:"result"`
}

type MatchService interface {
	SubmitScores(ctx context.Context, matchID, judgeID int, input SubmitScoresInput) ([]models.Score, error)
	// CompleteMatch resolves the match and folds it into the standings in one
	// transaction.
	CompleteMatch(ctx context.Context, matchID int) (*tabulation.MatchResult, error)
	// ReopenMatch clears completion and recomputes standings from history.
	ReopenMatch(ctx context.Context, matchID int) (*models.Match, error)
	AssignJudges(ctx context.Context, matchID int, judgeIDs []int) (*models.Match, error)
	CreateRoom(ctx context.Context, roundID int, input CreateRoomInput) (*models.Match, error)
}

type matchService struct {
	tx        Transactor
	repos     Repositories
	guard     *CompetitionGuard
	standings StandingsService
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewMatchService(tx Transactor, repos Repositories, guard *CompetitionGuard, standings StandingsService, notifier Notifier, logger *slog.Logger) MatchService {
	return &matchService{
		tx:        tx,
		repos:     repos,
		guard:     guard,
		standings: standings,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *matchService) loadRoom(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (tabulation.Room, tabulation.ParticipantIndex, error) {
	judges, err := s.repos.Matches.ListJudges(ctx, exec, []int{match.ID})
	if err != nil {
		return tabulation.Room{}, nil, err
	}
	match.JudgeIDs = judges[match.ID]

	ids := match.TeamIDs()
	teams, err := s.repos.Teams.ListByIDs(ctx, exec, ids[:])
	if err != nil {
		return tabulation.Room{}, nil, err
	}
	room, err := tabulation.NewRoom(match, teams)
	if err != nil {
		return tabulation.Room{}, nil, handleTabulationError(err)
	}
	index, err := room.Index()
	if err != nil {
		return tabulation.Room{}, nil, handleTabulationError(err)
	}
	return room, index, nil
}

// openRound loads a round and refuses it until the competition has entered
// the round's stage. Provisional elimination rooms stay closed until advancement.
func (s *matchService) openRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) (*models.Round, error) {
	round, err := s.repos.Rounds.GetByID(ctx, exec, roundID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	competition, err := s.repos.Competitions.GetByID(ctx, exec, round.CompetitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !round.Stage.Reached(competition.Stage) {
		return nil, fmt.Errorf("%w: round %d is %s, competition %d is at %s",
			ErrRoundNotOpen, round.ID, round.Stage, competition.ID, competition.Stage)
	}
	return round, nil
}

func validScore(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= MinSpeakerScore && value <= MaxSpeakerScore
}

func (s *matchService) SubmitScores(ctx context.Context, matchID, judgeID int, input SubmitScoresInput) ([]models.Score, error) {
	if judgeID <= 0 {
		return nil, ErrAuthenticationFailed
	}
	if len(input.Scores) == 0 {
		return nil, fmt.Errorf("%w: no scores submitted", ErrValidationFailed)
	}

	saved := make([]models.Score, 0, len(input.Scores))
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокировка строки матча: запись баллов не должна пересечься с CompleteMatch.
		match, err := s.repos.Matches.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if match.IsCompleted() {
			return ErrMatchAlreadyCompleted
		}
		if _, err := s.openRound(ctx, exec, match.RoundID); err != nil {
			return err
		}
		room, index, err := s.loadRoom(ctx, exec, match)
		if err != nil {
			return err
		}
		if len(room.JudgeIDs) > 0 && !containsInt(room.JudgeIDs, judgeID) {
			return fmt.Errorf("%w: judge %d, match %d", ErrUnexpectedJudge, judgeID, matchID)
		}

		seen := make(map[int]bool, len(input.Scores))
		for _, entry := range input.Scores {
			if _, ok := index[entry.ParticipantID]; !ok {
				return fmt.Errorf("%w: participant %d, match %d", ErrUnknownParticipant, entry.ParticipantID, matchID)
			}
			if seen[entry.ParticipantID] {
				return fmt.Errorf("%w: participant %d listed twice", ErrDuplicateJudgeScore, entry.ParticipantID)
			}
			seen[entry.ParticipantID] = true
			if !validScore(entry.Value) {
				return fmt.Errorf("%w: %v is outside [%v, %v]", ErrInvalidScore, entry.Value, MinSpeakerScore, MaxSpeakerScore)
			}

			score := models.Score{MatchID: matchID, ParticipantID: entry.ParticipantID, JudgeID: judgeID, Value: entry.Value}
			if input.Update {
				err = s.repos.Scores.Upsert(ctx, exec, &score)
			} else {
				err = s.repos.Scores.Create(ctx, exec, &score)
			}
			if err != nil {
				return handleRepositoryError(err)
			}
			saved = append(saved, score)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "scores submitted",
		slog.Int("match_id", matchID), slog.Int("judge_id", judgeID), slog.Int("count", len(saved)))
	return saved, nil
}

func (s *matchService) CompleteMatch(ctx context.Context, matchID int) (*tabulation.MatchResult, error) {
	var result tabulation.MatchResult
	var round *models.Round
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.repos.Matches.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if match.IsCompleted() {
			return ErrMatchAlreadyCompleted
		}
		round, err = s.openRound(ctx, exec, match.RoundID)
		if err != nil {
			return err
		}
		room, _, err := s.loadRoom(ctx, exec, match)
		if err != nil {
			return err
		}
		scores, err := s.repos.Scores.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		result, err = tabulation.ResolveMatch(room, scores)
		if err != nil {
			return handleTabulationError(err)
		}

		if err := s.repos.Matches.MarkCompleted(ctx, exec, matchID, s.now()); err != nil {
			return handleRepositoryError(err)
		}

		scopes := []models.StandingScope{models.ScopeOverall}
		if round.Stage.IsElimination() {
			scopes = append(scopes, models.ScopeElimination)
		}
		for _, scope := range scopes {
			for _, p := range result.Placements {
				if err := s.applyPlacement(ctx, exec, round.CompetitionID, scope, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match completed",
		slog.Int("match_id", matchID),
		slog.Int("round_id", round.ID),
		slog.Int("winner_team_id", result.Placements[0].TeamID),
	)
	if !round.IsFrozen {
		notifyCompetition(s.notifier, round.CompetitionID, brackets.MessageMatchCompleted, MatchCompletedPayload{
			CompetitionID: round.CompetitionID,
			RoundID:       round.ID,
			Result:        result,
		})
		s.standings.PublishLeaderboard(ctx, round.CompetitionID)
	}
	return &result, nil
}

func (s *matchService) applyPlacement(ctx context.Context, exec repositories.SQLExecutor, competitionID int, scope models.StandingScope, p tabulation.Placement) error {
	standing, err := s.repos.Standings.GetOrCreate(ctx, exec, competitionID, p.TeamID, scope)
	if err != nil {
		return err
	}
	updated, err := tabulation.ApplyPlacement(*standing, p)
	if err != nil {
		return err
	}
	if err := s.repos.Standings.Update(ctx, exec, &updated); err != nil {
		return fmt.Errorf("failed to update %s standing of team %d: %w", scope, p.TeamID, err)
	}
	return nil
}

func (s *matchService) ReopenMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var match *models.Match
	var round *models.Round
	var release func()
	defer func() {
		if release != nil {
			release()
		}
	}()

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.repos.Matches.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !match.IsCompleted() {
			return ErrMatchNotCompleted
		}
		round, err = s.repos.Rounds.GetByID(ctx, exec, match.RoundID)
		if err != nil {
			return handleRepositoryError(err)
		}

		// Пересчёт таблицы затрагивает весь турнир.
		release, err = s.guard.TryAcquire(round.CompetitionID)
		if err != nil {
			return err
		}
		if err := s.repos.Competitions.TryLock(ctx, exec, round.CompetitionID); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.repos.Matches.ClearCompleted(ctx, exec, matchID); err != nil {
			return handleRepositoryError(err)
		}
		match.CompletedAt = nil

		snap, err := loadSnapshot(ctx, s.repos, exec, round.CompetitionID)
		if err != nil {
			return err
		}
		_, err = rebuildStandings(ctx, s.repos, exec, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match reopened", slog.Int("match_id", matchID), slog.Int("round_id", round.ID))
	s.standings.PublishLeaderboard(ctx, round.CompetitionID)
	return match, nil
}

func (s *matchService) AssignJudges(ctx context.Context, matchID int, judgeIDs []int) (*models.Match, error) {
	panel := make([]int, 0, len(judgeIDs))
	seen := make(map[int]bool, len(judgeIDs))
	for _, id := range judgeIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: judge id must be positive", ErrValidationFailed)
		}
		if !seen[id] {
			seen[id] = true
			panel = append(panel, id)
		}
	}
	sort.Ints(panel)

	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.repos.Matches.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if match.IsCompleted() {
			return ErrMatchAlreadyCompleted
		}
		if _, err := s.openRound(ctx, exec, match.RoundID); err != nil {
			return err
		}
		if err := s.repos.Matches.ReplaceJudges(ctx, exec, matchID, panel); err != nil {
			return handleRepositoryError(err)
		}
		match.JudgeIDs = panel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) CreateRoom(ctx context.Context, roundID int, input CreateRoomInput) (*models.Match, error) {
	seen := make(map[int]bool, 4)
	for _, id := range input.TeamIDs {
		if id <= 0 || seen[id] {
			return nil, fmt.Errorf("%w: a room needs four distinct teams", ErrValidationFailed)
		}
		seen[id] = true
	}
	if input.MatchNumber < 0 {
		return nil, fmt.Errorf("%w: match number must be positive", ErrValidationFailed)
	}

	match := &models.Match{RoundID: roundID, MatchNumber: input.MatchNumber, ScheduledAt: input.ScheduledAt}
	match.SetTeamIDs(input.TeamIDs)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		round, err := s.repos.Rounds.GetByID(ctx, exec, roundID)
		if err != nil {
			return handleRepositoryError(err)
		}
		competition, err := s.repos.Competitions.GetByID(ctx, exec, round.CompetitionID)
		if err != nil {
			return handleRepositoryError(err)
		}
		// Новая комната в завершённом этапе снова сделала бы его незавершённым.
		if round.Stage != competition.Stage {
			return fmt.Errorf("%w: rooms can only be added to %s rounds, round %d is %s",
				ErrRoundNotOpen, competition.Stage, round.ID, round.Stage)
		}
		teams, err := s.repos.Teams.ListByIDs(ctx, exec, input.TeamIDs[:])
		if err != nil {
			return err
		}
		for _, id := range input.TeamIDs {
			team, ok := teams[id]
			if !ok || team.CompetitionID != round.CompetitionID {
				return fmt.Errorf("%w: team %d is not part of competition %d", ErrValidationFailed, id, round.CompetitionID)
			}
		}

		existing, err := s.repos.Matches.ListByRound(ctx, exec, roundID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			for _, id := range m.TeamIDs() {
				if seen[id] {
					return fmt.Errorf("%w: team %d already has a room in round %d", ErrValidationFailed, id, roundID)
				}
			}
		}
		if match.MatchNumber == 0 {
			match.MatchNumber = len(existing) + 1
			for _, m := range existing {
				if m.MatchNumber >= match.MatchNumber {
					match.MatchNumber = m.MatchNumber + 1
				}
			}
		}

		if err := s.repos.Matches.Create(ctx, exec, match); err != nil {
			if errors.Is(err, repositories.ErrMatchConflict) {
				return fmt.Errorf("%w: room %d", ErrRoomConflict, match.MatchNumber)
			}
			return handleRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "room created", slog.Int("round_id", roundID), slog.Int("match_id", match.ID))
	return match, nil
}
