package tabulation

import "errors"

var (
	// ErrScoreIncomplete is returned when a match does not carry the full
	// speaker × judge score set. Ranking is refused rather than approximated.
	ErrScoreIncomplete = errors.New("score set incomplete")

	ErrInvalidRoom        = errors.New("room must have four distinct teams with the same number of speakers")
	ErrUnknownParticipant = errors.New("participant is not a speaker in this match")
	ErrUnexpectedJudge    = errors.New("judge is not assigned to this match")
	ErrDuplicateScore     = errors.New("duplicate score for participant and judge")
	ErrInvalidPlacement   = errors.New("placement must be between 1 and 4")
	ErrNotEnoughTeams     = errors.New("not enough teams to fill a room")
	ErrNoNextStage        = errors.New("tournament is already complete")
	ErrInvalidFormat      = errors.New("invalid tournament format")
)
