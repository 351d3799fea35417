package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bp-tabulation/models"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrRoundConflict = errors.New("round already exists for this stage, number and session")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Round, error)
	SetFrozen(ctx context.Context, exec SQLExecutor, id int, frozen bool, frozenBy *int, at time.Time) error
	SetMotion(ctx context.Context, exec SQLExecutor, id int, motion *string) error
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundColumns = `id, competition_id, stage, round_number, session, motion, is_frozen, frozen_by, frozen_at, created_at`

func (r *postgresRoundRepository) scanRound(row rowScanner) (*models.Round, error) {
	var round models.Round
	var motion sql.NullString
	var frozenBy sql.NullInt64
	var frozenAt sql.NullTime
	err := row.Scan(
		&round.ID, &round.CompetitionID, &round.Stage, &round.RoundNumber, &round.Session,
		&motion, &round.IsFrozen, &frozenBy, &frozenAt, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	if motion.Valid {
		round.Motion = &motion.String
	}
	if frozenBy.Valid {
		by := int(frozenBy.Int64)
		round.FrozenBy = &by
	}
	if frozenAt.Valid {
		round.FrozenAt = &frozenAt.Time
	}
	return &round, nil
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	query := `
		INSERT INTO rounds (competition_id, stage, round_number, session, motion)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_frozen, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.CompetitionID, round.Stage, round.RoundNumber, round.Session, round.Motion,
	).Scan(&round.ID, &round.IsFrozen, &round.CreatedAt)
	if err != nil {
		if code, _, ok := pqCode(err); ok {
			switch code {
			case codeUniqueViolation:
				return ErrRoundConflict
			case codeForeignKeyViolation:
				return ErrCompetitionNotFound
			}
		}
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	return r.scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE competition_id = $1
		ORDER BY CASE stage
			WHEN 'PRELIMINARY' THEN 1
			WHEN 'SEMIFINAL' THEN 2
			WHEN 'FINAL' THEN 3
			ELSE 4 END,
			round_number ASC, session ASC, id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		round, err := r.scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

func (r *postgresRoundRepository) SetFrozen(ctx context.Context, exec SQLExecutor, id int, frozen bool, frozenBy *int, at time.Time) error {
	var query string
	var args []interface{}
	if frozen {
		query = `UPDATE rounds SET is_frozen = TRUE, frozen_by = $1, frozen_at = $2 WHERE id = $3`
		args = []interface{}{frozenBy, at, id}
	} else {
		query = `UPDATE rounds SET is_frozen = FALSE, frozen_by = NULL, frozen_at = NULL WHERE id = $1`
		args = []interface{}{id}
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update round visibility: %w", err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) SetMotion(ctx context.Context, exec SQLExecutor, id int, motion *string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE rounds SET motion = $1 WHERE id = $2`, motion, id)
	if err != nil {
		return fmt.Errorf("failed to update round motion: %w", err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM rounds WHERE competition_id = $1`, competitionID)
	if err != nil {
		return fmt.Errorf("failed to delete rounds for competition %d: %w", competitionID, err)
	}
	return nil
}
