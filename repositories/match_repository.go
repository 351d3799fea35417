package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrMatchConflict         = errors.New("match number already used in this round")
	ErrMatchTeamInvalid      = errors.New("match team conflict or invalid")
	ErrMatchAlreadyCompleted = errors.New("match already completed")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, stage *models.Stage) ([]*models.Match, error)
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	ClearCompleted(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error
	ReplaceJudges(ctx context.Context, exec SQLExecutor, matchID int, judgeIDs []int) error
	ListJudges(ctx context.Context, exec SQLExecutor, matchIDs []int) (map[int][]int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `m.id, m.round_id, m.match_number, m.team1_id, m.team2_id, m.team3_id, m.team4_id, m.scheduled_at, m.completed_at, m.created_at`

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var scheduledAt, completedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.RoundID, &m.MatchNumber,
		&m.Team1ID, &m.Team2ID, &m.Team3ID, &m.Team4ID,
		&scheduledAt, &completedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if scheduledAt.Valid {
		m.ScheduledAt = &scheduledAt.Time
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (round_id, match_number, team1_id, team2_id, team3_id, team4_id, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.RoundID, match.MatchNumber,
		match.Team1ID, match.Team2ID, match.Team3ID, match.Team4ID,
		match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqCode(err); ok {
		switch code {
		case codeUniqueViolation:
			return ErrMatchConflict
		case codeForeignKeyViolation:
			if strings.Contains(constraint, "round_id") {
				return ErrRoundNotFound
			}
			return ErrMatchTeamInvalid
		case codeCheckViolation:
			return ErrMatchTeamInvalid
		}
	}
	return fmt.Errorf("match query failed: %w", err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1`
	return r.scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1 FOR UPDATE`
	return r.scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) listMatches(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.round_id = $1 ORDER BY m.match_number ASC`
	return r.listMatches(ctx, r.getExecutor(exec), query, roundID)
}

func (r *postgresMatchRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, stage *models.Stage) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT ` + matchColumns + `
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE r.competition_id = $1`)

	args := []interface{}{competitionID}
	if stage != nil {
		queryBuilder.WriteString(" AND r.stage = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *stage)
	}
	queryBuilder.WriteString(" ORDER BY m.round_id ASC, m.match_number ASC")

	return r.listMatches(ctx, r.getExecutor(exec), queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	query := `UPDATE matches SET completed_at = $1 WHERE id = $2 AND completed_at IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyCompleted)
}

func (r *postgresMatchRepository) ClearCompleted(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE matches SET completed_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to reopen match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `
		DELETE FROM match_judges
		WHERE match_id IN (SELECT id FROM matches WHERE round_id = $1)`, roundID); err != nil {
		return fmt.Errorf("failed to delete judges for round %d: %w", roundID, err)
	}
	if _, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE round_id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to delete matches for round %d: %w", roundID, err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `
		DELETE FROM match_judges
		WHERE match_id IN (
			SELECT m.id FROM matches m JOIN rounds r ON r.id = m.round_id WHERE r.competition_id = $1
		)`, competitionID); err != nil {
		return fmt.Errorf("failed to delete judges for competition %d: %w", competitionID, err)
	}
	if _, err := executor.ExecContext(ctx, `
		DELETE FROM matches
		WHERE round_id IN (SELECT id FROM rounds WHERE competition_id = $1)`, competitionID); err != nil {
		return fmt.Errorf("failed to delete matches for competition %d: %w", competitionID, err)
	}
	return nil
}

func (r *postgresMatchRepository) ReplaceJudges(ctx context.Context, exec SQLExecutor, matchID int, judgeIDs []int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM match_judges WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to clear judges: %w", err)
	}
	if len(judgeIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO match_judges (match_id, judge_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT DO NOTHING`
	if _, err := executor.ExecContext(ctx, query, matchID, pq.Array(judgeIDs)); err != nil {
		if code, _, ok := pqCode(err); ok && code == codeForeignKeyViolation {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to assign judges: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) ListJudges(ctx context.Context, exec SQLExecutor, matchIDs []int) (map[int][]int, error) {
	judges := make(map[int][]int, len(matchIDs))
	if len(matchIDs) == 0 {
		return judges, nil
	}
	query := `
		SELECT match_id, judge_id
		FROM match_judges
		WHERE match_id = ANY($1)
		ORDER BY match_id ASC, judge_id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list judges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var matchID, judgeID int
		if err := rows.Scan(&matchID, &judgeID); err != nil {
			return nil, err
		}
		judges[matchID] = append(judges[matchID], judgeID)
	}
	return judges, rows.Err()
}
