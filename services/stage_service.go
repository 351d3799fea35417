package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

type StageStatus struct {
	CompetitionID  int           `json:"competition_id"`
	Stage          models.Stage  `json:"stage"`
	StageComplete  bool          `json:"stage_complete"`
	NextStage      *models.Stage `json:"next_stage,omitempty"`
	RequiredRounds int           `json:"required_rounds"`
	RoundsComplete int           `json:"rounds_complete"`
}

type AdvanceStageInput struct {
	// Target, when set, must equal the stage that follows the current one.
	Target models.Stage `json:"target,omitempty"`
}

type AdvanceResult struct {
	CompetitionID    int             `json:"competition_id"`
	From             models.Stage    `json:"from"`
	To               models.Stage    `json:"to"`
	AdvancingTeamIDs []int           `json:"advancing_team_ids"`
	Rounds           []*models.Round `json:"rounds"`
	MatchesCreated   int             `json:"matches_created"`
	ArchiveLocation  string          `json:"archive_location,omitempty"`
}

type StageService interface {
	CurrentStage(ctx context.Context, competitionID int) (*StageStatus, error)
	IsStageComplete(ctx context.Context, competitionID int, stage models.Stage) (bool, error)
	AdvanceStage(ctx context.Context, competitionID int, input AdvanceStageInput) (*AdvanceResult, error)
}

type stageService struct {
	tx        Transactor
	repos     Repositories
	format    tabulation.Format
	guard     *CompetitionGuard
	standings StandingsService
	archive   ArchiveService
	notifier  Notifier
	logger    *slog.Logger
}

func NewStageService(
	tx Transactor,
	repos Repositories,
	format tabulation.Format,
	guard *CompetitionGuard,
	standings StandingsService,
	archive ArchiveService,
	notifier Notifier,
	logger *slog.Logger,
) StageService {
	return &stageService{
		tx:        tx,
		repos:     repos,
		format:    format,
		guard:     guard,
		standings: standings,
		archive:   archive,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *stageService) CurrentStage(ctx context.Context, competitionID int) (*StageStatus, error) {
	snap, err := loadSnapshot(ctx, s.repos, nil, competitionID)
	if err != nil {
		return nil, err
	}
	status := &StageStatus{
		CompetitionID:  competitionID,
		Stage:          snap.Competition.Stage,
		RequiredRounds: s.format.RequiredRounds(snap.Competition.Stage),
	}
	progress := snap.progress()
	status.StageComplete = tabulation.IsStageComplete(s.format, status.Stage, progress)
	status.RoundsComplete = completedRoundNumbers(status.Stage, progress)
	if next, err := tabulation.NextStage(status.Stage); err == nil {
		status.NextStage = &next
	}
	return status, nil
}

// completedRoundNumbers counts round numbers of stage whose rounds are all
// fully completed.
func completedRoundNumbers(stage models.Stage, progress []tabulation.RoundProgress) int {
	done := make(map[int]bool)
	for _, rp := range progress {
		if rp.Round.Stage != stage {
			continue
		}
		complete := len(rp.Matches) > 0
		for _, m := range rp.Matches {
			if m.CompletedAt == nil {
				complete = false
			}
		}
		if prev, seen := done[rp.Round.RoundNumber]; seen {
			complete = complete && prev
		}
		done[rp.Round.RoundNumber] = complete
	}
	count := 0
	for _, ok := range done {
		if ok {
			count++
		}
	}
	return count
}

func (s *stageService) IsStageComplete(ctx context.Context, competitionID int, stage models.Stage) (bool, error) {
	if !stage.Valid() {
		return false, fmt.Errorf("%w: unknown stage %q", ErrValidationFailed, stage)
	}
	snap, err := loadSnapshot(ctx, s.repos, nil, competitionID)
	if err != nil {
		return false, err
	}
	return tabulation.IsStageComplete(s.format, stage, snap.progress()), nil
}

func (s *stageService) AdvanceStage(ctx context.Context, competitionID int, input AdvanceStageInput) (*AdvanceResult, error) {
	release, err := s.guard.TryAcquire(competitionID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &AdvanceResult{CompetitionID: competitionID}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.repos.Competitions.TryLock(ctx, exec, competitionID); err != nil {
			return handleRepositoryError(err)
		}
		snap, err := loadSnapshot(ctx, s.repos, exec, competitionID)
		if err != nil {
			return err
		}
		current := snap.Competition.Stage
		result.From = current

		next, err := tabulation.NextStage(current)
		if err != nil {
			return handleTabulationError(err)
		}
		if next == models.StageSemifinal && !hasStageRounds(snap, models.StageSemifinal) {
			// Too few teams for a semifinal at generation time.
			next = models.StageFinal
		}
		if input.Target != "" && input.Target != next {
			return fmt.Errorf("%w: %s cannot move to %s", ErrInvalidStageTransition, current, input.Target)
		}
		if !tabulation.IsStageComplete(s.format, current, snap.progress()) {
			return fmt.Errorf("%w: stage %s is not complete", ErrInvalidStageTransition, current)
		}
		result.To = next

		rebuilt, err := rebuildStandings(ctx, s.repos, exec, snap)
		if err != nil {
			return err
		}

		if next != models.StageComplete {
			if err := s.seedStage(ctx, exec, snap, next, rebuilt[models.ScopeOverall], result); err != nil {
				return err
			}
		}
		return handleRepositoryError(s.repos.Competitions.UpdateStage(ctx, exec, competitionID, next))
	})
	if err != nil {
		if !errors.Is(err, ErrConcurrentRegeneration) {
			s.logger.WarnContext(ctx, "stage advancement rejected", slog.Int("competition_id", competitionID), slog.Any("error", err))
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "stage advanced",
		slog.Int("competition_id", competitionID),
		slog.String("from", string(result.From)),
		slog.String("to", string(result.To)),
		slog.Int("advancing", len(result.AdvancingTeamIDs)),
	)

	if result.To == models.StageComplete {
		if archived, err := s.archive.ArchiveCompetition(ctx, competitionID); err != nil {
			if !errors.Is(err, ErrArchiveDisabled) {
				s.logger.ErrorContext(ctx, "failed to archive results", slog.Int("competition_id", competitionID), slog.Any("error", err))
			}
		} else {
			result.ArchiveLocation = archived.Location
		}
	}

	notifyCompetition(s.notifier, competitionID, brackets.MessageStageAdvanced, result)
	s.standings.PublishLeaderboard(ctx, competitionID)
	return result, nil
}

func hasStageRounds(snap *competitionSnapshot, stage models.Stage) bool {
	for _, r := range snap.Rounds {
		if r.Stage == stage {
			return true
		}
	}
	return false
}

// seedStage replaces the provisional draw of stage with block-seeded rooms
// taken from the overall standings.
func (s *stageService) seedStage(ctx context.Context, exec repositories.SQLExecutor, snap *competitionSnapshot, stage models.Stage, overall []models.TeamStanding, result *AdvanceResult) error {
	advancing, err := tabulation.SelectAdvancing(tabulation.Rank(overall), s.format.Cut(stage))
	if err != nil {
		return handleTabulationError(err)
	}
	seeds, err := tabulation.BlockSeed(advancing)
	if err != nil {
		return handleTabulationError(err)
	}
	result.AdvancingTeamIDs = advancing

	targets := make([]*models.Round, 0)
	for _, r := range snap.Rounds {
		if r.Stage == stage {
			targets = append(targets, r)
		}
	}
	targetIDs := make([]int, len(targets))
	for i, r := range targets {
		targetIDs[i] = r.ID
	}
	scored, err := s.repos.Scores.CountByRounds(ctx, exec, targetIDs)
	if err != nil {
		return err
	}
	if scored > 0 {
		return fmt.Errorf("%w: %s rounds already hold scores", ErrInvalidStageTransition, stage)
	}
	for _, m := range snap.Matches {
		if containsInt(targetIDs, m.RoundID) && m.IsCompleted() {
			return fmt.Errorf("%w: %s rounds already hold completed matches", ErrInvalidStageTransition, stage)
		}
	}

	for _, teamID := range advancing {
		if _, err := s.repos.Standings.GetOrCreate(ctx, exec, snap.Competition.ID, teamID, models.ScopeElimination); err != nil {
			return err
		}
	}

	if len(targets) == 0 {
		for n := 1; n <= s.format.RequiredRounds(stage); n++ {
			round, err := createPlannedRound(ctx, s.repos, exec, snap.Competition.ID, brackets.SeededRound(stage, n, seeds))
			if err != nil {
				return err
			}
			result.Rounds = append(result.Rounds, round)
			result.MatchesCreated += len(round.Matches)
		}
		return nil
	}

	for _, round := range targets {
		if err := s.repos.Matches.DeleteByRound(ctx, exec, round.ID); err != nil {
			return err
		}
		planned := brackets.SeededRound(stage, round.RoundNumber, seeds)
		if err := createPlannedRooms(ctx, s.repos, exec, round, planned.Rooms); err != nil {
			return err
		}
		result.Rounds = append(result.Rounds, round)
		result.MatchesCreated += len(round.Matches)
	}
	return nil
}
