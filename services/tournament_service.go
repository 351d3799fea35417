package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

// GenerateRoundsInput must echo the competition id and set Confirm: the
// operation wipes every round, match, score and standing of the competition.
type GenerateRoundsInput struct {
	CompetitionID int  `json:"competition_id"`
	Confirm       bool `json:"confirm"`
}

type GenerationResult struct {
	CompetitionID  int             `json:"competition_id"`
	TeamCount      int             `json:"team_count"`
	RoundsCreated  int             `json:"rounds_created"`
	MatchesCreated int             `json:"matches_created"`
	Rounds         []*models.Round `json:"rounds"`
	// SittingOut lists, per preliminary round id, the teams without a room.
	SittingOut map[int][]int `json:"sitting_out,omitempty"`
}

type TournamentService interface {
	GenerateRounds(ctx context.Context, competitionID int, input GenerateRoundsInput) (*GenerationResult, error)
}

type tournamentService struct {
	tx        Transactor
	repos     Repositories
	generator brackets.TournamentGenerator
	format    tabulation.Format
	guard     *CompetitionGuard
	standings StandingsService
	logger    *slog.Logger
}

func NewTournamentService(
	tx Transactor,
	repos Repositories,
	generator brackets.TournamentGenerator,
	format tabulation.Format,
	guard *CompetitionGuard,
	standings StandingsService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:        tx,
		repos:     repos,
		generator: generator,
		format:    format,
		guard:     guard,
		standings: standings,
		logger:    logger,
	}
}

func (s *tournamentService) GenerateRounds(ctx context.Context, competitionID int, input GenerateRoundsInput) (*GenerationResult, error) {
	if !input.Confirm || input.CompetitionID != competitionID {
		return nil, ErrConfirmationRequired
	}

	release, err := s.guard.TryAcquire(competitionID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	result := &GenerationResult{CompetitionID: competitionID, SittingOut: make(map[int][]int)}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		competition, err := s.repos.Competitions.GetByID(ctx, exec, competitionID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := s.repos.Competitions.TryLock(ctx, exec, competitionID); err != nil {
			return handleRepositoryError(err)
		}

		teams, err := s.repos.Teams.ListVerified(ctx, exec, competitionID, competition.MemberCount)
		if err != nil {
			return fmt.Errorf("failed to list verified teams: %w", err)
		}
		if len(teams) < s.format.MinTeams {
			return fmt.Errorf("%w: found %d, minimum %d", ErrInsufficientTeams, len(teams), s.format.MinTeams)
		}
		result.TeamCount = len(teams)

		planned, err := s.generator.GenerateTournament(ctx, brackets.GenerateTournamentParams{
			Competition: competition,
			Teams:       teams,
			Format:      s.format,
		})
		if err != nil {
			return handleTabulationError(err)
		}

		if err := s.wipe(ctx, exec, competitionID); err != nil {
			return err
		}

		for _, p := range planned {
			round, err := createPlannedRound(ctx, s.repos, exec, competitionID, p)
			if err != nil {
				return err
			}
			result.Rounds = append(result.Rounds, round)
			result.MatchesCreated += len(round.Matches)
			if len(p.SittingOut) > 0 {
				result.SittingOut[round.ID] = p.SittingOut
			}
		}
		result.RoundsCreated = len(result.Rounds)

		standings := make([]*models.TeamStanding, len(teams))
		for i, t := range teams {
			zero := tabulation.ZeroStanding(competitionID, t.ID, models.ScopeOverall)
			standings[i] = &zero
		}
		if err := s.repos.Standings.BatchCreate(ctx, exec, standings); err != nil {
			return fmt.Errorf("failed to seed standings: %w", err)
		}

		if competition.Stage != models.StagePreliminary {
			if err := s.repos.Competitions.UpdateStage(ctx, exec, competitionID, models.StagePreliminary); err != nil {
				return handleRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrConcurrentRegeneration) {
			s.logger.WarnContext(ctx, "tournament generation failed", slog.Int("competition_id", competitionID), slog.Any("error", err))
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament generated",
		slog.Int("competition_id", competitionID),
		slog.String("generator", s.generator.GetName()),
		slog.Int("teams", result.TeamCount),
		slog.Int("rounds", result.RoundsCreated),
		slog.Int("matches", result.MatchesCreated),
		slog.Duration("took", time.Since(start)),
	)
	s.standings.PublishLeaderboard(ctx, competitionID)
	return result, nil
}

// wipe deletes in dependency order: scores, matches (with judges), rounds, standings.
func (s *tournamentService) wipe(ctx context.Context, exec repositories.SQLExecutor, competitionID int) error {
	if err := s.repos.Scores.DeleteByCompetition(ctx, exec, competitionID); err != nil {
		return err
	}
	if err := s.repos.Matches.DeleteByCompetition(ctx, exec, competitionID); err != nil {
		return err
	}
	if err := s.repos.Rounds.DeleteByCompetition(ctx, exec, competitionID); err != nil {
		return err
	}
	return s.repos.Standings.DeleteByCompetition(ctx, exec, competitionID, "")
}

func createPlannedRound(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, competitionID int, p *brackets.PlannedRound) (*models.Round, error) {
	round := &models.Round{
		CompetitionID: competitionID,
		Stage:         p.Stage,
		RoundNumber:   p.RoundNumber,
		Session:       p.Session,
	}
	if err := repos.Rounds.Create(ctx, exec, round); err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := createPlannedRooms(ctx, repos, exec, round, p.Rooms); err != nil {
		return nil, err
	}
	return round, nil
}

func createPlannedRooms(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, round *models.Round, rooms []brackets.PlannedRoom) error {
	round.Matches = make([]models.Match, 0, len(rooms))
	for _, room := range rooms {
		match := models.Match{RoundID: round.ID, MatchNumber: room.MatchNumber}
		match.SetTeamIDs(room.TeamIDs)
		if err := repos.Matches.Create(ctx, exec, &match); err != nil {
			return fmt.Errorf("failed to create room %d of round %d: %w", room.MatchNumber, round.ID, handleRepositoryError(err))
		}
		round.Matches = append(round.Matches, match)
	}
	return nil
}
