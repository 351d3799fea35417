package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bp-tabulation/models"
)

var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrCompetitionLocked   = errors.New("competition is locked by another operation")
)

type CompetitionRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error)
	ListActive(ctx context.Context, exec SQLExecutor) ([]*models.Competition, error)
	UpdateStage(ctx context.Context, exec SQLExecutor, id int, stage models.Stage) error
	// TryLock takes a transaction-scoped advisory lock on the competition.
	// exec must be a transaction. Returns ErrCompetitionLocked when held elsewhere.
	TryLock(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresCompetitionRepository struct {
	db                 *sql.DB
	defaultMemberCount int
}

func (r *postgresCompetitionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// NewPostgresCompetitionRepository returns the repository. Competitions without
// their own member_count get defaultMemberCount.
func NewPostgresCompetitionRepository(db *sql.DB, defaultMemberCount int) CompetitionRepository {
	return &postgresCompetitionRepository{db: db, defaultMemberCount: defaultMemberCount}
}

func (r *postgresCompetitionRepository) scan(row rowScanner) (*models.Competition, error) {
	var c models.Competition
	var memberCount sql.NullInt32
	err := row.Scan(&c.ID, &c.Name, &c.Stage, &memberCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	c.MemberCount = r.defaultMemberCount
	if memberCount.Valid {
		c.MemberCount = int(memberCount.Int32)
	}
	return &c, nil
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error) {
	query := `
		SELECT id, name, stage, member_count, created_at, updated_at
		FROM competitions
		WHERE id = $1`
	return r.scan(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresCompetitionRepository) ListActive(ctx context.Context, exec SQLExecutor) ([]*models.Competition, error) {
	query := `
		SELECT id, name, stage, member_count, created_at, updated_at
		FROM competitions
		WHERE stage <> $1
		ORDER BY id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.StageComplete)
	if err != nil {
		return nil, fmt.Errorf("failed to list active competitions: %w", err)
	}
	defer rows.Close()

	competitions := make([]*models.Competition, 0)
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		competitions = append(competitions, c)
	}
	return competitions, rows.Err()
}

func (r *postgresCompetitionRepository) UpdateStage(ctx context.Context, exec SQLExecutor, id int, stage models.Stage) error {
	query := `UPDATE competitions SET stage = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, stage, id)
	if err != nil {
		return fmt.Errorf("failed to update competition stage: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) TryLock(ctx context.Context, exec SQLExecutor, id int) error {
	if _, ok := exec.(*sql.Tx); !ok {
		return errors.New("advisory lock requires a transaction")
	}
	var locked bool
	if err := exec.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, int64(id)).Scan(&locked); err != nil {
		return fmt.Errorf("failed to take competition lock: %w", err)
	}
	if !locked {
		return ErrCompetitionLocked
	}
	return nil
}
