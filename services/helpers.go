package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrCompetitionNotFound):
		return ErrCompetitionNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchAlreadyCompleted):
		return ErrMatchAlreadyCompleted
	case errors.Is(err, repositories.ErrCompetitionLocked):
		return ErrConcurrentRegeneration
	case errors.Is(err, repositories.ErrScoreDuplicate):
		return ErrDuplicateJudgeScore
	case errors.Is(err, repositories.ErrScoreParticipantInvalid):
		return ErrUnknownParticipant
	case errors.Is(err, repositories.ErrMatchConflict), errors.Is(err, repositories.ErrRoundConflict):
		return ErrRoomConflict
	case errors.Is(err, repositories.ErrMatchTeamInvalid):
		return fmt.Errorf("%w: teams must be four distinct existing teams", ErrValidationFailed)
	}
	return err
}

func handleTabulationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tabulation.ErrNotEnoughTeams), errors.Is(err, brackets.ErrNotEnoughTeams):
		return fmt.Errorf("%w: %v", ErrInsufficientTeams, err)
	case errors.Is(err, tabulation.ErrNoNextStage):
		return fmt.Errorf("%w: %v", ErrInvalidStageTransition, err)
	case errors.Is(err, tabulation.ErrInvalidRoom), errors.Is(err, tabulation.ErrInvalidFormat):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
