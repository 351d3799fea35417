package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/bp-tabulation/models"
)

var (
	ErrScoreNotFound           = errors.New("score not found")
	ErrScoreDuplicate          = errors.New("score already recorded for this speaker and judge")
	ErrScoreParticipantInvalid = errors.New("score participant conflict or invalid")
)

type ScoreRepository interface {
	// Create inserts a score. A second score for the same (match, participant,
	// judge) fails with ErrScoreDuplicate.
	Create(ctx context.Context, exec SQLExecutor, score *models.Score) error
	// Upsert inserts or replaces the value for (match, participant, judge).
	Upsert(ctx context.Context, exec SQLExecutor, score *models.Score) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Score, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]models.Score, error)
	CountByRounds(ctx context.Context, exec SQLExecutor, roundIDs []int) (int, error)
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error
	DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresScoreRepository) handleScoreError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqCode(err); ok {
		switch code {
		case codeUniqueViolation:
			return ErrScoreDuplicate
		case codeForeignKeyViolation:
			if strings.Contains(constraint, "match_id") {
				return ErrMatchNotFound
			}
			return ErrScoreParticipantInvalid
		}
	}
	return fmt.Errorf("score query failed: %w", err)
}

func (r *postgresScoreRepository) Create(ctx context.Context, exec SQLExecutor, score *models.Score) error {
	query := `
		INSERT INTO scores (match_id, participant_id, judge_id, value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		score.MatchID, score.ParticipantID, score.JudgeID, score.Value,
	).Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt)
	return r.handleScoreError(err)
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, score *models.Score) error {
	query := `
		INSERT INTO scores (match_id, participant_id, judge_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT scores_match_participant_judge_key
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		score.MatchID, score.ParticipantID, score.JudgeID, score.Value,
	).Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt)
	return r.handleScoreError(err)
}

func (r *postgresScoreRepository) listScores(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.Score, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	scores := make([]models.Score, 0)
	for rows.Next() {
		var s models.Score
		if err := rows.Scan(&s.ID, &s.MatchID, &s.ParticipantID, &s.JudgeID, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *postgresScoreRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Score, error) {
	query := `
		SELECT id, match_id, participant_id, judge_id, value, created_at, updated_at
		FROM scores
		WHERE match_id = $1
		ORDER BY judge_id ASC, participant_id ASC`
	return r.listScores(ctx, r.getExecutor(exec), query, matchID)
}

func (r *postgresScoreRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]models.Score, error) {
	query := `
		SELECT s.id, s.match_id, s.participant_id, s.judge_id, s.value, s.created_at, s.updated_at
		FROM scores s
		JOIN matches m ON m.id = s.match_id
		JOIN rounds r ON r.id = m.round_id
		WHERE r.competition_id = $1
		ORDER BY s.match_id ASC, s.judge_id ASC, s.participant_id ASC`
	return r.listScores(ctx, r.getExecutor(exec), query, competitionID)
}

func (r *postgresScoreRepository) CountByRounds(ctx context.Context, exec SQLExecutor, roundIDs []int) (int, error) {
	if len(roundIDs) == 0 {
		return 0, nil
	}
	query := `
		SELECT COUNT(*)
		FROM scores s
		JOIN matches m ON m.id = s.match_id
		WHERE m.round_id = ANY($1)`
	var count int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, intArray(roundIDs)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return count, nil
}

func (r *postgresScoreRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) error {
	query := `
		DELETE FROM scores
		WHERE match_id IN (
			SELECT m.id FROM matches m JOIN rounds r ON r.id = m.round_id WHERE r.competition_id = $1
		)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, competitionID); err != nil {
		return fmt.Errorf("failed to delete scores for competition %d: %w", competitionID, err)
	}
	return nil
}

func (r *postgresScoreRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error {
	query := `DELETE FROM scores WHERE match_id IN (SELECT id FROM matches WHERE round_id = $1)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, roundID); err != nil {
		return fmt.Errorf("failed to delete scores for round %d: %w", roundID, err)
	}
	return nil
}
