package services

import (
	"errors"

	"github.com/Dosada05/bp-tabulation/tabulation"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrCompetitionNotFound = errors.New("competition not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrMatchNotFound       = errors.New("match not found")

	ErrInsufficientTeams      = errors.New("not enough verified teams")
	ErrInvalidStageTransition = errors.New("invalid stage transition")
	ErrConcurrentRegeneration = errors.New("another generation, advancement or recompute is running for this competition")
	ErrConfirmationRequired   = errors.New("destructive operation requires explicit confirmation")

	ErrMatchAlreadyCompleted = errors.New("match is already completed")
	ErrMatchNotCompleted     = errors.New("match is not completed")
	ErrInvalidScore          = errors.New("invalid speaker score")
	ErrRoomConflict          = errors.New("room number already used in this round")
	ErrInvalidScope          = errors.New("invalid standings scope")
	// ErrRoundNotOpen: the round belongs to a stage the competition is not in.
	ErrRoundNotOpen = errors.New("round is not open in the current stage")

	ErrResultsWithheld = errors.New("results are withheld")
	ErrArchiveDisabled = errors.New("results archive is not configured")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)

// Score-set errors come from the resolver unchanged.
var (
	ErrScoreIncomplete     = tabulation.ErrScoreIncomplete
	ErrDuplicateJudgeScore = tabulation.ErrDuplicateScore
	ErrUnknownParticipant  = tabulation.ErrUnknownParticipant
	ErrUnexpectedJudge     = tabulation.ErrUnexpectedJudge
)
