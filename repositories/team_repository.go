package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/lib/pq"
)

type TeamRepository interface {
	// ListVerified returns VERIFIED teams with exactly memberCount members, in
	// submission order (created_at, id).
	ListVerified(ctx context.Context, exec SQLExecutor, competitionID, memberCount int) ([]*models.Team, error)
	// ListByIDs returns teams with their members, keyed by id.
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) ListVerified(ctx context.Context, exec SQLExecutor, competitionID, memberCount int) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT t.id, t.competition_id, t.name, t.status, t.created_at
		FROM teams t
		WHERE t.competition_id = $1
		  AND t.status = $2
		  AND (SELECT COUNT(*) FROM team_members m WHERE m.team_id = t.id) = $3
		ORDER BY t.created_at ASC, t.id ASC`
	rows, err := executor.QueryContext(ctx, query, competitionID, models.TeamStatusVerified, memberCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	ids := make([]int, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.CompetitionID, &t.Name, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, &t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := r.listMembers(ctx, executor, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		t.Members = members[t.ID]
	}
	return teams, nil
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]*models.Team, error) {
	executor := r.getExecutor(exec)
	teams := make(map[int]*models.Team, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}
	query := `
		SELECT id, competition_id, name, status, created_at
		FROM teams
		WHERE id = ANY($1)`
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.CompetitionID, &t.Name, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := r.listMembers(ctx, executor, ids)
	if err != nil {
		return nil, err
	}
	for id, t := range teams {
		t.Members = members[id]
	}
	return teams, nil
}

func (r *postgresTeamRepository) listMembers(ctx context.Context, executor SQLExecutor, teamIDs []int) (map[int][]models.Member, error) {
	members := make(map[int][]models.Member, len(teamIDs))
	if len(teamIDs) == 0 {
		return members, nil
	}
	query := `
		SELECT id, team_id, name, position
		FROM team_members
		WHERE team_id = ANY($1)
		ORDER BY team_id ASC, position ASC, id ASC`
	rows, err := executor.QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.TeamID, &m.Name, &m.Position); err != nil {
			return nil, err
		}
		members[m.TeamID] = append(members[m.TeamID], m)
	}
	return members, rows.Err()
}
