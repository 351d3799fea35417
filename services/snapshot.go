package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"golang.org/x/sync/errgroup"
)

// Repositories bundles the stores the tabulation services read and write.
type Repositories struct {
	Competitions repositories.CompetitionRepository
	Teams        repositories.TeamRepository
	Rounds       repositories.RoundRepository
	Matches      repositories.MatchRepository
	Scores       repositories.ScoreRepository
	Standings    repositories.TeamStandingRepository
}

// competitionSnapshot is everything needed to rebuild standings in memory.
type competitionSnapshot struct {
	Competition *models.Competition
	Rounds      []*models.Round
	Matches     []*models.Match
	Teams       map[int]*models.Team
	Pool        []int
	Scores      map[int][]models.Score
}

// loadSnapshot reads a competition. Outside a transaction the reads run in
// parallel; a transaction is used by one goroutine at a time.
func loadSnapshot(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, competitionID int) (*competitionSnapshot, error) {
	snap := &competitionSnapshot{Scores: make(map[int][]models.Score)}

	g, gctx := errgroup.WithContext(ctx)
	if exec != nil {
		g.SetLimit(1)
	}
	var scores []models.Score
	g.Go(func() error {
		c, err := repos.Competitions.GetByID(gctx, exec, competitionID)
		snap.Competition = c
		return handleRepositoryError(err)
	})
	g.Go(func() error {
		rounds, err := repos.Rounds.ListByCompetition(gctx, exec, competitionID)
		snap.Rounds = rounds
		return err
	})
	g.Go(func() error {
		matches, err := repos.Matches.ListByCompetition(gctx, exec, competitionID, nil)
		snap.Matches = matches
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = repos.Scores.ListByCompetition(gctx, exec, competitionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, s := range scores {
		snap.Scores[s.MatchID] = append(snap.Scores[s.MatchID], s)
	}

	matchIDs := make([]int, 0, len(snap.Matches))
	teamSet := make(map[int]bool)
	for _, m := range snap.Matches {
		matchIDs = append(matchIDs, m.ID)
		for _, id := range m.TeamIDs() {
			teamSet[id] = true
		}
	}
	teamIDs := make([]int, 0, len(teamSet))
	for id := range teamSet {
		teamIDs = append(teamIDs, id)
	}
	sort.Ints(teamIDs)

	var judges map[int][]int
	var pool []*models.Team
	g, gctx = errgroup.WithContext(ctx)
	if exec != nil {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		judges, err = repos.Matches.ListJudges(gctx, exec, matchIDs)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Teams, err = repos.Teams.ListByIDs(gctx, exec, teamIDs)
		return err
	})
	g.Go(func() error {
		var err error
		pool, err = repos.Teams.ListVerified(gctx, exec, competitionID, snap.Competition.MemberCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range snap.Matches {
		m.JudgeIDs = judges[m.ID]
	}
	snap.Pool = make([]int, 0, len(pool))
	for _, t := range pool {
		snap.Pool = append(snap.Pool, t.ID)
		if _, ok := snap.Teams[t.ID]; !ok {
			snap.Teams[t.ID] = t
		}
	}
	return snap, nil
}

func (s *competitionSnapshot) roundsByID() map[int]*models.Round {
	out := make(map[int]*models.Round, len(s.Rounds))
	for _, r := range s.Rounds {
		out[r.ID] = r
	}
	return out
}

// completedMatches resolves every completed match whose round passes include.
func (s *competitionSnapshot) completedMatches(include func(*models.Round) bool) ([]tabulation.CompletedMatch, error) {
	rounds := s.roundsByID()
	out := make([]tabulation.CompletedMatch, 0, len(s.Matches))
	for _, m := range s.Matches {
		if !m.IsCompleted() {
			continue
		}
		round, ok := rounds[m.RoundID]
		if !ok || (include != nil && !include(round)) {
			continue
		}
		room, err := tabulation.NewRoom(m, s.Teams)
		if err != nil {
			return nil, err
		}
		result, err := tabulation.ResolveMatch(room, s.Scores[m.ID])
		if err != nil {
			return nil, fmt.Errorf("completed match %d: %w", m.ID, err)
		}
		out = append(out, tabulation.CompletedMatch{
			MatchID:     m.ID,
			RoundID:     m.RoundID,
			Stage:       round.Stage,
			CompletedAt: *m.CompletedAt,
			Result:      result,
		})
	}
	return out, nil
}

// scopeTeams lists the teams that start at zero in a scope: the verified pool
// for overall, the teams seated in elimination rooms the competition has
// reached for elimination. Rooms of later stages are provisional.
func (s *competitionSnapshot) scopeTeams(scope models.StandingScope) []int {
	if scope == models.ScopeOverall {
		return append([]int(nil), s.Pool...)
	}
	rounds := s.roundsByID()
	set := make(map[int]bool)
	for _, m := range s.Matches {
		if r, ok := rounds[m.RoundID]; ok && r.Stage.IsElimination() && r.Stage.Reached(s.Competition.Stage) {
			for _, id := range m.TeamIDs() {
				set[id] = true
			}
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *competitionSnapshot) progress() []tabulation.RoundProgress {
	byRound := make(map[int][]models.Match)
	for _, m := range s.Matches {
		byRound[m.RoundID] = append(byRound[m.RoundID], *m)
	}
	out := make([]tabulation.RoundProgress, 0, len(s.Rounds))
	for _, r := range s.Rounds {
		out = append(out, tabulation.RoundProgress{Round: *r, Matches: byRound[r.ID]})
	}
	return out
}

// recompute rebuilds one scope in memory. include filters rounds (nil keeps all).
func (s *competitionSnapshot) recompute(scope models.StandingScope, include func(*models.Round) bool) ([]models.TeamStanding, error) {
	matches, err := s.completedMatches(include)
	if err != nil {
		return nil, err
	}
	return tabulation.RecomputeStandings(s.Competition.ID, s.scopeTeams(scope), scope, matches)
}

func (s *competitionSnapshot) withTeams(standings []models.TeamStanding) []models.TeamStanding {
	for i := range standings {
		standings[i].Team = s.Teams[standings[i].TeamID]
	}
	return standings
}

// persistStandings replaces the stored rows of a scope with standings.
func persistStandings(ctx context.Context, repo repositories.TeamStandingRepository, exec repositories.SQLExecutor, competitionID int, scope models.StandingScope, standings []models.TeamStanding) error {
	if err := repo.DeleteByCompetition(ctx, exec, competitionID, scope); err != nil {
		return fmt.Errorf("failed to clear %s standings: %w", scope, err)
	}
	rows := make([]*models.TeamStanding, len(standings))
	for i := range standings {
		rows[i] = &standings[i]
	}
	if err := repo.BatchCreate(ctx, exec, rows); err != nil {
		return fmt.Errorf("failed to store %s standings: %w", scope, err)
	}
	return nil
}

// rebuildStandings recomputes and stores every scope from the snapshot.
func rebuildStandings(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, snap *competitionSnapshot) (map[models.StandingScope][]models.TeamStanding, error) {
	out := make(map[models.StandingScope][]models.TeamStanding, 2)
	for _, scope := range []models.StandingScope{models.ScopeOverall, models.ScopeElimination} {
		standings, err := snap.recompute(scope, nil)
		if err != nil {
			return nil, err
		}
		if err := persistStandings(ctx, repos.Standings, exec, snap.Competition.ID, scope, standings); err != nil {
			return nil, err
		}
		out[scope] = standings
	}
	return out, nil
}
