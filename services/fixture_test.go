package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"github.com/stretchr/testify/require"
)

const testJudgeID = 100

type fixture struct {
	t             *testing.T
	ctx           context.Context
	db            *memDB
	repos         Repositories
	notifier      *fakeNotifier
	store         *fakeStore
	guard         *CompetitionGuard
	standings     StandingsService
	tournament    TournamentService
	matches       MatchService
	stages        StageService
	rounds        RoundService
	results       ResultsService
	competitionID int
	teamIDs       []int
}

// newFixture builds the services over an in-memory store with one
// competition of teamCount two-speaker teams. Round 1 is drawn in submission
// order.
func newFixture(t *testing.T, teamCount int) *fixture {
	t.Helper()
	db := newMemDB()
	repos := db.repositories()
	notifier := &fakeNotifier{}
	store := &fakeStore{}
	logger := discardLogger()
	tx := &fakeTransactor{db: db}
	guard := NewCompetitionGuard()
	format := tabulation.DefaultFormat()

	clock := func() time.Time {
		db.mu.Lock()
		defer db.mu.Unlock()
		return db.tick()
	}

	standings := NewStandingsService(tx, repos, guard, notifier, logger)
	matches := NewMatchService(tx, repos, guard, standings, notifier, logger)
	matches.(*matchService).now = clock
	archive := NewArchiveService(store, standings, logger)

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		repos:      repos,
		notifier:   notifier,
		store:      store,
		guard:      guard,
		standings:  standings,
		tournament: NewTournamentService(tx, repos, brackets.NewBPGenerator(func(n int, swap func(i, j int)) {}), format, guard, standings, logger),
		matches:    matches,
		stages:     NewStageService(tx, repos, format, guard, standings, archive, notifier, logger),
		rounds:     NewRoundService(tx, repos, standings, notifier, logger),
		results:    NewResultsService(repos),
	}
	f.competitionID = db.addCompetition("Spring Open", 2)
	f.teamIDs = db.addTeams(f.competitionID, teamCount, 2)
	return f
}

func (f *fixture) generate() *GenerationResult {
	f.t.Helper()
	res, err := f.tournament.GenerateRounds(f.ctx, f.competitionID, GenerateRoundsInput{CompetitionID: f.competitionID, Confirm: true})
	require.NoError(f.t, err)
	return res
}

// roundsOf returns the stored rounds of a stage ordered by round number.
func (f *fixture) roundsOf(stage models.Stage) []models.Round {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Round, 0)
	for _, r := range f.db.state.rounds {
		if r.CompetitionID == f.competitionID && r.Stage == stage {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out
}

func (f *fixture) matchesOf(roundID int) []models.Match {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range f.db.state.matches {
		if m.RoundID == roundID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func (f *fixture) match(id int) models.Match {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.state.matches[id]
}

func (f *fixture) scoreCount() int {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.state.scores)
}

// entries scores every speaker of the match at 60 + team id, so the team
// with the highest id wins the room.
func (f *fixture) entries(matchID int) []ScoreEntry {
	m := f.match(matchID)
	out := make([]ScoreEntry, 0, 8)
	for _, teamID := range m.TeamIDs() {
		for k := 1; k <= 2; k++ {
			out = append(out, ScoreEntry{ParticipantID: 10*teamID + k, Value: float64(60 + teamID)})
		}
	}
	return out
}

func (f *fixture) play(matchID int) *tabulation.MatchResult {
	f.t.Helper()
	_, err := f.matches.SubmitScores(f.ctx, matchID, testJudgeID, SubmitScoresInput{Scores: f.entries(matchID)})
	require.NoError(f.t, err)
	res, err := f.matches.CompleteMatch(f.ctx, matchID)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) playRound(roundID int) {
	f.t.Helper()
	for _, m := range f.matchesOf(roundID) {
		f.play(m.ID)
	}
}

func (f *fixture) playStage(stage models.Stage) {
	f.t.Helper()
	for _, r := range f.roundsOf(stage) {
		f.playRound(r.ID)
	}
}

// standing returns the persisted row of a team, or nil.
func (f *fixture) standing(teamID int, scope models.StandingScope) *models.TeamStanding {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := (&memStandings{f.db}).get(f.competitionID, teamID, scope)
	if !ok {
		return nil
	}
	return s
}

func (f *fixture) stage() models.Stage {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.state.competitions[f.competitionID].Stage
}

func teamOrder(board []tabulation.RankedStanding) []int {
	ids := make([]int, len(board))
	for i, s := range board {
		ids[i] = s.TeamID
	}
	return ids
}
