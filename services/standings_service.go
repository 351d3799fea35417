package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

// Leaderboard is the ranked standings of one scope as a viewer may see them.
type Leaderboard struct {
	CompetitionID    int                         `json:"competition_id"`
	Stage            models.Stage                `json:"stage"`
	Scope            models.StandingScope        `json:"scope"`
	Standings        []tabulation.RankedStanding `json:"standings"`
	WithheldRoundIDs []int                       `json:"withheld_round_ids"`
	GeneratedAt      time.Time                   `json:"generated_at"`
}

type RecomputeResult struct {
	CompetitionID int                         `json:"competition_id"`
	Overall       []tabulation.RankedStanding `json:"overall"`
	Elimination   []tabulation.RankedStanding `json:"elimination"`
}

// StandingDrift is a persisted row that disagrees with a recompute.
type StandingDrift struct {
	CompetitionID int
	TeamID        int
	Scope         models.StandingScope
	Persisted     *models.TeamStanding
	Recomputed    models.TeamStanding
}

type StandingsService interface {
	// ListStandings returns the persisted standings of a scope, ranked. It
	// ignores freezing and is meant for privileged viewers.
	ListStandings(ctx context.Context, competitionID int, scope models.StandingScope) (*Leaderboard, error)
	// PublicLeaderboard recomputes a scope from unfrozen rounds only.
	PublicLeaderboard(ctx context.Context, competitionID int, scope models.StandingScope) (*Leaderboard, error)
	// RecomputeStandings rebuilds every scope from match history and stores it.
	RecomputeStandings(ctx context.Context, competitionID int) (*RecomputeResult, error)
	PublishLeaderboard(ctx context.Context, competitionID int)
	// AuditStandings compares stored standings of active competitions with a
	// fresh recompute. It never writes.
	AuditStandings(ctx context.Context) ([]StandingDrift, error)
}

type standingsService struct {
	tx       Transactor
	repos    Repositories
	guard    *CompetitionGuard
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewStandingsService(tx Transactor, repos Repositories, guard *CompetitionGuard, notifier Notifier, logger *slog.Logger) StandingsService {
	return &standingsService{
		tx:       tx,
		repos:    repos,
		guard:    guard,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *standingsService) ListStandings(ctx context.Context, competitionID int, scope models.StandingScope) (*Leaderboard, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	competition, err := s.repos.Competitions.GetByID(ctx, nil, competitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	rows, err := s.repos.Standings.ListByCompetition(ctx, nil, competitionID, scope, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}

	ids := make([]int, len(rows))
	standings := make([]models.TeamStanding, len(rows))
	for i, row := range rows {
		ids[i] = row.TeamID
		standings[i] = *row
	}
	teams, err := s.repos.Teams.ListByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	for i := range standings {
		standings[i].Team = teams[standings[i].TeamID]
	}

	return &Leaderboard{
		CompetitionID:    competitionID,
		Stage:            competition.Stage,
		Scope:            scope,
		Standings:        tabulation.Rank(standings),
		WithheldRoundIDs: []int{},
		GeneratedAt:      s.now(),
	}, nil
}

func (s *standingsService) PublicLeaderboard(ctx context.Context, competitionID int, scope models.StandingScope) (*Leaderboard, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	snap, err := loadSnapshot(ctx, s.repos, nil, competitionID)
	if err != nil {
		return nil, err
	}

	standings, err := snap.recompute(scope, func(r *models.Round) bool { return !tabulation.Withheld(*r, false) })
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}

	rounds := make([]models.Round, len(snap.Rounds))
	for i, r := range snap.Rounds {
		rounds[i] = *r
	}

	return &Leaderboard{
		CompetitionID:    competitionID,
		Stage:            snap.Competition.Stage,
		Scope:            scope,
		Standings:        tabulation.Rank(snap.withTeams(standings)),
		WithheldRoundIDs: tabulation.FrozenRounds(rounds),
		GeneratedAt:      s.now(),
	}, nil
}

func (s *standingsService) RecomputeStandings(ctx context.Context, competitionID int) (*RecomputeResult, error) {
	release, err := s.guard.TryAcquire(competitionID)
	if err != nil {
		return nil, err
	}
	defer release()

	var rebuilt map[models.StandingScope][]models.TeamStanding
	var snap *competitionSnapshot
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.repos.Competitions.TryLock(ctx, exec, competitionID); err != nil {
			return handleRepositoryError(err)
		}
		var err error
		snap, err = loadSnapshot(ctx, s.repos, exec, competitionID)
		if err != nil {
			return err
		}
		rebuilt, err = rebuildStandings(ctx, s.repos, exec, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "standings recomputed",
		slog.Int("competition_id", competitionID),
		slog.Int("overall_rows", len(rebuilt[models.ScopeOverall])),
		slog.Int("elimination_rows", len(rebuilt[models.ScopeElimination])),
	)
	s.PublishLeaderboard(ctx, competitionID)

	return &RecomputeResult{
		CompetitionID: competitionID,
		Overall:       tabulation.Rank(snap.withTeams(rebuilt[models.ScopeOverall])),
		Elimination:   tabulation.Rank(snap.withTeams(rebuilt[models.ScopeElimination])),
	}, nil
}

// PublishLeaderboard pushes the public overall leaderboard to the
// competition's websocket room. Frozen rounds never reach it.
func (s *standingsService) PublishLeaderboard(ctx context.Context, competitionID int) {
	if s.notifier == nil {
		return
	}
	board, err := s.PublicLeaderboard(ctx, competitionID, models.ScopeOverall)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build leaderboard for broadcast",
			slog.Int("competition_id", competitionID), slog.Any("error", err))
		return
	}
	notifyCompetition(s.notifier, competitionID, brackets.MessageStandingsUpdated, board)
}

func (s *standingsService) AuditStandings(ctx context.Context) ([]StandingDrift, error) {
	competitions, err := s.repos.Competitions.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list active competitions: %w", err)
	}

	drifts := make([]StandingDrift, 0)
	for _, c := range competitions {
		snap, err := loadSnapshot(ctx, s.repos, nil, c.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "audit: failed to load competition", slog.Int("competition_id", c.ID), slog.Any("error", err))
			continue
		}
		for _, scope := range []models.StandingScope{models.ScopeOverall, models.ScopeElimination} {
			expected, err := snap.recompute(scope, nil)
			if err != nil {
				s.logger.WarnContext(ctx, "audit: recompute failed", slog.Int("competition_id", c.ID), slog.String("scope", string(scope)), slog.Any("error", err))
				continue
			}
			stored, err := s.repos.Standings.ListByCompetition(ctx, nil, c.ID, scope, false)
			if err != nil {
				return nil, fmt.Errorf("failed to list standings: %w", err)
			}
			drifts = append(drifts, diffStandings(c.ID, scope, stored, expected)...)
		}
	}

	for _, d := range drifts {
		s.logger.WarnContext(ctx, "standings drift detected",
			slog.Int("competition_id", d.CompetitionID),
			slog.Int("team_id", d.TeamID),
			slog.String("scope", string(d.Scope)),
		)
	}
	return drifts, nil
}

func diffStandings(competitionID int, scope models.StandingScope, stored []*models.TeamStanding, expected []models.TeamStanding) []StandingDrift {
	byTeam := make(map[int]*models.TeamStanding, len(stored))
	for _, row := range stored {
		byTeam[row.TeamID] = row
	}
	drifts := make([]StandingDrift, 0)
	for _, want := range expected {
		got := byTeam[want.TeamID]
		delete(byTeam, want.TeamID)
		if got != nil && sameTotals(*got, want) {
			continue
		}
		drifts = append(drifts, StandingDrift{CompetitionID: competitionID, TeamID: want.TeamID, Scope: scope, Persisted: got, Recomputed: want})
	}
	for teamID, got := range byTeam {
		drifts = append(drifts, StandingDrift{
			CompetitionID: competitionID,
			TeamID:        teamID,
			Scope:         scope,
			Persisted:     got,
			Recomputed:    tabulation.ZeroStanding(competitionID, teamID, scope),
		})
	}
	return drifts
}

const floatTolerance = 1e-6

func sameTotals(a, b models.TeamStanding) bool {
	return a.MatchesPlayed == b.MatchesPlayed &&
		a.TeamPoints == b.TeamPoints &&
		a.FirstPlaces == b.FirstPlaces &&
		a.SecondPlaces == b.SecondPlaces &&
		a.ThirdPlaces == b.ThirdPlaces &&
		a.FourthPlaces == b.FourthPlaces &&
		math.Abs(a.SpeakerPoints-b.SpeakerPoints) < floatTolerance &&
		math.Abs(a.AverageSpeakerPoints-b.AverageSpeakerPoints) < floatTolerance &&
		math.Abs(a.AveragePosition-b.AveragePosition) < floatTolerance
}
