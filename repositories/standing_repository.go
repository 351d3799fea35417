package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/bp-tabulation/models"
)

var (
	ErrTeamStandingNotFound = errors.New("team standing not found")
	ErrStandingTeamInvalid  = errors.New("standing team conflict or invalid")
)

type TeamStandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.TeamStanding) error
	// GetForUpdate locks the standing row until the transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.TeamStanding) error
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, scope models.StandingScope, sortByRank bool) ([]*models.TeamStanding, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error)
	BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.TeamStanding) error
	// DeleteByCompetition removes rows of one scope, or every scope when scope is empty.
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, scope models.StandingScope) error
}

type postgresTeamStandingRepository struct {
	db *sql.DB
}

func NewPostgresTeamStandingRepository(db *sql.DB) TeamStandingRepository {
	return &postgresTeamStandingRepository{db: db}
}

func (r *postgresTeamStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `id, competition_id, team_id, scope, matches_played, team_points, speaker_points,
		average_speaker_points, first_places, second_places, third_places, fourth_places,
		average_position, updated_at`

const insertStandingQuery = `
		INSERT INTO team_standings
		    (competition_id, team_id, scope, matches_played, team_points, speaker_points,
		     average_speaker_points, first_places, second_places, third_places, fourth_places,
		     average_position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

func standingArgs(s *models.TeamStanding) []interface{} {
	return []interface{}{
		s.CompetitionID, s.TeamID, s.Scope, s.MatchesPlayed, s.TeamPoints, s.SpeakerPoints,
		s.AverageSpeakerPoints, s.FirstPlaces, s.SecondPlaces, s.ThirdPlaces, s.FourthPlaces,
		s.AveragePosition, s.UpdatedAt,
	}
}

func (r *postgresTeamStandingRepository) handleStandingError(err error) error {
	if err == nil {
		return nil
	}
	if code, _, ok := pqCode(err); ok {
		switch code {
		case codeUniqueViolation, codeForeignKeyViolation:
			return ErrStandingTeamInvalid
		}
	}
	return err
}

func (r *postgresTeamStandingRepository) Create(ctx context.Context, exec SQLExecutor, standing *models.TeamStanding) error {
	if standing.UpdatedAt.IsZero() {
		standing.UpdatedAt = time.Now()
	}
	err := r.getExecutor(exec).QueryRowContext(ctx, insertStandingQuery, standingArgs(standing)...).Scan(&standing.ID)
	return r.handleStandingError(err)
}

func (r *postgresTeamStandingRepository) BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.TeamStanding) error {
	if len(standings) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)

	tx, ok := executor.(*sql.Tx)
	if !ok {
		for _, standing := range standings {
			if err := r.Create(ctx, executor, standing); err != nil {
				return fmt.Errorf("BatchCreate failed for team %d: %w", standing.TeamID, err)
			}
		}
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, insertStandingQuery)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, standing := range standings {
		if standing.UpdatedAt.IsZero() {
			standing.UpdatedAt = time.Now()
		}
		if err := stmt.QueryRowContext(ctx, standingArgs(standing)...).Scan(&standing.ID); err != nil {
			return fmt.Errorf("BatchCreate failed for team %d: %w", standing.TeamID, r.handleStandingError(err))
		}
	}
	return nil
}

func (r *postgresTeamStandingRepository) scanStanding(row rowScanner) (*models.TeamStanding, error) {
	var s models.TeamStanding
	err := row.Scan(
		&s.ID, &s.CompetitionID, &s.TeamID, &s.Scope, &s.MatchesPlayed, &s.TeamPoints, &s.SpeakerPoints,
		&s.AverageSpeakerPoints, &s.FirstPlaces, &s.SecondPlaces, &s.ThirdPlaces, &s.FourthPlaces,
		&s.AveragePosition, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresTeamStandingRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error) {
	query := `
		SELECT ` + standingColumns + `
		FROM team_standings
		WHERE competition_id = $1 AND team_id = $2 AND scope = $3
		FOR UPDATE`
	return r.scanStanding(r.getExecutor(exec).QueryRowContext(ctx, query, competitionID, teamID, scope))
}

func (r *postgresTeamStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.TeamStanding) error {
	query := `
		UPDATE team_standings SET
			matches_played = $1, team_points = $2, speaker_points = $3, average_speaker_points = $4,
			first_places = $5, second_places = $6, third_places = $7, fourth_places = $8,
			average_position = $9, updated_at = NOW()
		WHERE id = $10`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		standing.MatchesPlayed, standing.TeamPoints, standing.SpeakerPoints, standing.AverageSpeakerPoints,
		standing.FirstPlaces, standing.SecondPlaces, standing.ThirdPlaces, standing.FourthPlaces,
		standing.AveragePosition, standing.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamStandingNotFound)
}

func (r *postgresTeamStandingRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, scope models.StandingScope, sortByRank bool) ([]*models.TeamStanding, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT ` + standingColumns + ` FROM team_standings WHERE competition_id = $1 AND scope = $2`)
	if sortByRank {
		// Unplayed teams (average_position = 0) sort after every played team.
		queryBuilder.WriteString(` ORDER BY team_points DESC, speaker_points DESC, average_speaker_points DESC,
			CASE WHEN matches_played = 0 THEN 1 ELSE 0 END ASC, average_position ASC, team_id ASC`)
	} else {
		queryBuilder.WriteString(" ORDER BY team_id ASC")
	}

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), competitionID, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.TeamStanding, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}

func (r *postgresTeamStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error) {
	executor := r.getExecutor(exec)
	standing, err := r.GetForUpdate(ctx, executor, competitionID, teamID, scope)
	if err != nil {
		if errors.Is(err, ErrTeamStandingNotFound) {
			newStanding := &models.TeamStanding{
				CompetitionID: competitionID,
				TeamID:        teamID,
				Scope:         scope,
				UpdatedAt:     time.Now(),
			}
			if createErr := r.Create(ctx, executor, newStanding); createErr != nil {
				return nil, fmt.Errorf("failed to create standing for c:%d t:%d: %w", competitionID, teamID, createErr)
			}
			return newStanding, nil
		}
		return nil, fmt.Errorf("failed to get standing for c:%d t:%d: %w", competitionID, teamID, err)
	}
	return standing, nil
}

func (r *postgresTeamStandingRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, scope models.StandingScope) error {
	executor := r.getExecutor(exec)
	if scope == "" {
		_, err := executor.ExecContext(ctx, `DELETE FROM team_standings WHERE competition_id = $1`, competitionID)
		return err
	}
	_, err := executor.ExecContext(ctx, `DELETE FROM team_standings WHERE competition_id = $1 AND scope = $2`, competitionID, scope)
	return err
}
