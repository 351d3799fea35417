package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

type RoundVisibilityPayload struct {
	CompetitionID int  `json:"competition_id"`
	RoundID       int  `json:"round_id"`
	IsFrozen      bool `json:"is_frozen"`
}

type RoundService interface {
	// ListRounds returns the draw of every round. Viewers without privilege
	// do not see completion state of frozen rounds.
	ListRounds(ctx context.Context, competitionID int, privileged bool) ([]*models.Round, error)
	SetFrozen(ctx context.Context, roundID int, frozen bool, actorID int) (*models.Round, error)
	SetMotion(ctx context.Context, roundID int, motion string) (*models.Round, error)
}

type roundService struct {
	tx        Transactor
	repos     Repositories
	standings StandingsService
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewRoundService(tx Transactor, repos Repositories, standings StandingsService, notifier Notifier, logger *slog.Logger) RoundService {
	return &roundService{
		tx:        tx,
		repos:     repos,
		standings: standings,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *roundService) ListRounds(ctx context.Context, competitionID int, privileged bool) ([]*models.Round, error) {
	if _, err := s.repos.Competitions.GetByID(ctx, nil, competitionID); err != nil {
		return nil, handleRepositoryError(err)
	}
	rounds, err := s.repos.Rounds.ListByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, err
	}
	matches, err := s.repos.Matches.ListByCompetition(ctx, nil, competitionID, nil)
	if err != nil {
		return nil, err
	}

	byRound := make(map[int][]models.Match, len(rounds))
	for _, m := range matches {
		byRound[m.RoundID] = append(byRound[m.RoundID], *m)
	}
	for _, r := range rounds {
		r.Matches = byRound[r.ID]
		if tabulation.Withheld(*r, privileged) {
			for i := range r.Matches {
				r.Matches[i].CompletedAt = nil
			}
		}
	}
	return rounds, nil
}

func (s *roundService) SetFrozen(ctx context.Context, roundID int, frozen bool, actorID int) (*models.Round, error) {
	var round *models.Round
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var by *int
		if actorID > 0 {
			by = &actorID
		}
		if err := s.repos.Rounds.SetFrozen(ctx, exec, roundID, frozen, by, s.now()); err != nil {
			return handleRepositoryError(err)
		}
		var err error
		round, err = s.repos.Rounds.GetByID(ctx, exec, roundID)
		return handleRepositoryError(err)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "round visibility changed",
		slog.Int("round_id", roundID), slog.Bool("frozen", frozen), slog.Int("actor_id", actorID))
	notifyCompetition(s.notifier, round.CompetitionID, brackets.MessageRoundVisibility, RoundVisibilityPayload{
		CompetitionID: round.CompetitionID,
		RoundID:       round.ID,
		IsFrozen:      round.IsFrozen,
	})
	s.standings.PublishLeaderboard(ctx, round.CompetitionID)
	return round, nil
}

func (s *roundService) SetMotion(ctx context.Context, roundID int, motion string) (*models.Round, error) {
	var value *string
	if trimmed := strings.TrimSpace(motion); trimmed != "" {
		value = &trimmed
	}
	if value != nil && len(*value) > 2000 {
		return nil, fmt.Errorf("%w: motion is too long", ErrValidationFailed)
	}

	if err := s.repos.Rounds.SetMotion(ctx, nil, roundID, value); err != nil {
		return nil, handleRepositoryError(err)
	}
	round, err := s.repos.Rounds.GetByID(ctx, nil, roundID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return round, nil
}
