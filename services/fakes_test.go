package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/repositories"
	"github.com/Dosada05/bp-tabulation/storage"
	"github.com/Dosada05/bp-tabulation/tabulation"
)

// memState is the in-memory database behind the fake repositories.
type memState struct {
	seq          map[string]int
	competitions map[int]models.Competition
	teams        map[int]models.Team
	rounds       map[int]models.Round
	matches      map[int]models.Match
	judges       map[int][]int
	scores       map[int]models.Score
	standings    map[int]models.TeamStanding
	locked       map[int]bool
}

func newMemState() memState {
	return memState{
		seq:          map[string]int{},
		competitions: map[int]models.Competition{},
		teams:        map[int]models.Team{},
		rounds:       map[int]models.Round{},
		matches:      map[int]models.Match{},
		judges:       map[int][]int{},
		scores:       map[int]models.Score{},
		standings:    map[int]models.TeamStanding{},
		locked:       map[int]bool{},
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.competitions {
		c.competitions[k] = v
	}
	for k, v := range s.teams {
		v.Members = append([]models.Member(nil), v.Members...)
		c.teams[k] = v
	}
	for k, v := range s.rounds {
		c.rounds[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.judges {
		c.judges[k] = append([]int(nil), v...)
	}
	for k, v := range s.scores {
		c.scores[k] = v
	}
	for k, v := range s.standings {
		c.standings[k] = v
	}
	for k, v := range s.locked {
		c.locked[k] = v
	}
	return c
}

type memDB struct {
	mu    sync.Mutex
	state memState
	now   time.Time
	// rowLocks counts match reads taken FOR UPDATE.
	rowLocks int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState(), now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (db *memDB) next(table string) int {
	db.state.seq[table]++
	return db.state.seq[table]
}

func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

func (db *memDB) repositories() Repositories {
	return Repositories{
		Competitions: &memCompetitions{db},
		Teams:        &memTeams{db},
		Rounds:       &memRounds{db},
		Matches:      &memMatches{db},
		Scores:       &memScores{db},
		Standings:    &memStandings{db},
	}
}

func (db *memDB) addCompetition(name string, memberCount int) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.next("competitions")
	db.state.competitions[id] = models.Competition{ID: id, Name: name, Stage: models.StagePreliminary, MemberCount: memberCount}
	return id
}

// addTeams registers n verified teams; member ids follow 10*teamID+k.
func (db *memDB) addTeams(competitionID, n, members int) []int {
	db.mu.Lock()
	defer db.mu.Unlock()
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id := db.next("teams")
		team := models.Team{ID: id, CompetitionID: competitionID, Status: models.TeamStatusVerified, CreatedAt: db.tick()}
		team.Name = "Team " + string(rune('A'+i%26))
		for k := 1; k <= members; k++ {
			team.Members = append(team.Members, models.Member{ID: 10*id + k, TeamID: id, Name: team.Name + " speaker", Position: k})
		}
		db.state.teams[id] = team
		ids = append(ids, id)
	}
	return ids
}

type fakeTransactor struct {
	db *memDB
}

// WithinTx restores the state snapshot when fn fails.
func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.db.mu.Lock()
	saved := t.db.state.clone()
	t.db.mu.Unlock()

	if err := fn(nil); err != nil {
		t.db.mu.Lock()
		t.db.state = saved
		t.db.mu.Unlock()
		return err
	}
	return nil
}

type memCompetitions struct{ db *memDB }

func (r *memCompetitions) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Competition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	return &c, nil
}

func (r *memCompetitions) ListActive(ctx context.Context, exec repositories.SQLExecutor) ([]*models.Competition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Competition, 0)
	for _, c := range r.db.state.competitions {
		if c.Stage != models.StageComplete {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCompetitions) UpdateStage(ctx context.Context, exec repositories.SQLExecutor, id int, stage models.Stage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.Stage = stage
	r.db.state.competitions[id] = c
	return nil
}

func (r *memCompetitions) TryLock(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.state.locked[id] {
		return repositories.ErrCompetitionLocked
	}
	return nil
}

type memTeams struct{ db *memDB }

func (r *memTeams) ListVerified(ctx context.Context, exec repositories.SQLExecutor, competitionID, memberCount int) ([]*models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range r.db.state.teams {
		if t.CompetitionID == competitionID && t.Status == models.TeamStatusVerified && len(t.Members) == memberCount {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memTeams) ListByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []int) (map[int]*models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int]*models.Team, len(ids))
	for _, id := range ids {
		if t, ok := r.db.state.teams[id]; ok {
			t := t
			out[id] = &t
		}
	}
	return out, nil
}

type memRounds struct{ db *memDB }

func (r *memRounds) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.state.rounds {
		if existing.CompetitionID == round.CompetitionID && existing.Stage == round.Stage &&
			existing.RoundNumber == round.RoundNumber && existing.Session == round.Session {
			return repositories.ErrRoundConflict
		}
	}
	round.ID = r.db.next("rounds")
	round.CreatedAt = r.db.tick()
	stored := *round
	stored.Matches = nil
	r.db.state.rounds[round.ID] = stored
	return nil
}

func (r *memRounds) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Round, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	round, ok := r.db.state.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	return &round, nil
}

var stageRank = map[models.Stage]int{models.StagePreliminary: 1, models.StageSemifinal: 2, models.StageFinal: 3}

func (r *memRounds) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) ([]*models.Round, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Round, 0)
	for _, round := range r.db.state.rounds {
		if round.CompetitionID == competitionID {
			round := round
			out = append(out, &round)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Stage != b.Stage {
			return stageRank[a.Stage] < stageRank[b.Stage]
		}
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber < b.RoundNumber
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *memRounds) SetFrozen(ctx context.Context, exec repositories.SQLExecutor, id int, frozen bool, frozenBy *int, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	round, ok := r.db.state.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.IsFrozen = frozen
	round.FrozenBy, round.FrozenAt = nil, nil
	if frozen {
		round.FrozenBy = frozenBy
		round.FrozenAt = &at
	}
	r.db.state.rounds[id] = round
	return nil
}

func (r *memRounds) SetMotion(ctx context.Context, exec repositories.SQLExecutor, id int, motion *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	round, ok := r.db.state.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Motion = motion
	r.db.state.rounds[id] = round
	return nil
}

func (r *memRounds) DeleteByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, round := range r.db.state.rounds {
		if round.CompetitionID == competitionID {
			delete(r.db.state.rounds, id)
		}
	}
	return nil
}

type memMatches struct{ db *memDB }

func (r *memMatches) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.rounds[match.RoundID]; !ok {
		return repositories.ErrRoundNotFound
	}
	for _, m := range r.db.state.matches {
		if m.RoundID == match.RoundID && m.MatchNumber == match.MatchNumber {
			return repositories.ErrMatchConflict
		}
	}
	match.ID = r.db.next("matches")
	match.CreatedAt = r.db.tick()
	stored := *match
	stored.JudgeIDs = nil
	r.db.state.matches[match.ID] = stored
	return nil
}

func (r *memMatches) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.state.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *memMatches) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.db.mu.Lock()
	r.db.rowLocks++
	r.db.mu.Unlock()
	return r.GetByID(ctx, exec, id)
}

func (r *memMatches) list(keep func(models.Match) bool) []*models.Match {
	out := make([]*models.Match, 0)
	for _, m := range r.db.state.matches {
		if keep(m) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundID != out[j].RoundID {
			return out[i].RoundID < out[j].RoundID
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out
}

func (r *memMatches) ListByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) ([]*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(m models.Match) bool { return m.RoundID == roundID }), nil
}

func (r *memMatches) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int, stage *models.Stage) ([]*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(m models.Match) bool {
		round, ok := r.db.state.rounds[m.RoundID]
		return ok && round.CompetitionID == competitionID && (stage == nil || round.Stage == *stage)
	}), nil
}

func (r *memMatches) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.state.matches[id]
	if !ok || m.CompletedAt != nil {
		return repositories.ErrMatchAlreadyCompleted
	}
	m.CompletedAt = &at
	r.db.state.matches[id] = m
	return nil
}

func (r *memMatches) ClearCompleted(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.state.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.CompletedAt = nil
	r.db.state.matches[id] = m
	return nil
}

func (r *memMatches) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, m := range r.db.state.matches {
		if m.RoundID == roundID {
			delete(r.db.state.matches, id)
			delete(r.db.state.judges, id)
		}
	}
	return nil
}

func (r *memMatches) DeleteByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, m := range r.db.state.matches {
		if round, ok := r.db.state.rounds[m.RoundID]; ok && round.CompetitionID == competitionID {
			delete(r.db.state.matches, id)
			delete(r.db.state.judges, id)
		}
	}
	return nil
}

func (r *memMatches) ReplaceJudges(ctx context.Context, exec repositories.SQLExecutor, matchID int, judgeIDs []int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.matches[matchID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.db.state.judges[matchID] = append([]int(nil), judgeIDs...)
	return nil
}

func (r *memMatches) ListJudges(ctx context.Context, exec repositories.SQLExecutor, matchIDs []int) (map[int][]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int][]int, len(matchIDs))
	for _, id := range matchIDs {
		if judges := r.db.state.judges[id]; len(judges) > 0 {
			out[id] = append([]int(nil), judges...)
		}
	}
	return out, nil
}

type memScores struct{ db *memDB }

func (r *memScores) find(s *models.Score) (int, bool) {
	for id, existing := range r.db.state.scores {
		if existing.MatchID == s.MatchID && existing.ParticipantID == s.ParticipantID && existing.JudgeID == s.JudgeID {
			return id, true
		}
	}
	return 0, false
}

func (r *memScores) Create(ctx context.Context, exec repositories.SQLExecutor, score *models.Score) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, dup := r.find(score); dup {
		return repositories.ErrScoreDuplicate
	}
	score.ID = r.db.next("scores")
	score.CreatedAt = r.db.tick()
	score.UpdatedAt = score.CreatedAt
	r.db.state.scores[score.ID] = *score
	return nil
}

func (r *memScores) Upsert(ctx context.Context, exec repositories.SQLExecutor, score *models.Score) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if id, ok := r.find(score); ok {
		existing := r.db.state.scores[id]
		existing.Value = score.Value
		existing.UpdatedAt = r.db.tick()
		r.db.state.scores[id] = existing
		*score = existing
		return nil
	}
	score.ID = r.db.next("scores")
	score.CreatedAt = r.db.tick()
	score.UpdatedAt = score.CreatedAt
	r.db.state.scores[score.ID] = *score
	return nil
}

func (r *memScores) list(keep func(models.Score) bool) []models.Score {
	out := make([]models.Score, 0)
	for _, s := range r.db.state.scores {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memScores) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.Score, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(s models.Score) bool { return s.MatchID == matchID }), nil
}

func (r *memScores) inCompetition(s models.Score, competitionID int) bool {
	m, ok := r.db.state.matches[s.MatchID]
	if !ok {
		return false
	}
	round, ok := r.db.state.rounds[m.RoundID]
	return ok && round.CompetitionID == competitionID
}

func (r *memScores) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) ([]models.Score, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(s models.Score) bool { return r.inCompetition(s, competitionID) }), nil
}

func (r *memScores) CountByRounds(ctx context.Context, exec repositories.SQLExecutor, roundIDs []int) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	count := 0
	for _, s := range r.db.state.scores {
		if m, ok := r.db.state.matches[s.MatchID]; ok && containsInt(roundIDs, m.RoundID) {
			count++
		}
	}
	return count, nil
}

func (r *memScores) DeleteByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.state.scores {
		if r.inCompetition(s, competitionID) {
			delete(r.db.state.scores, id)
		}
	}
	return nil
}

func (r *memScores) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.state.scores {
		if m, ok := r.db.state.matches[s.MatchID]; ok && m.RoundID == roundID {
			delete(r.db.state.scores, id)
		}
	}
	return nil
}

type memStandings struct{ db *memDB }

func (r *memStandings) create(s *models.TeamStanding) error {
	for _, existing := range r.db.state.standings {
		if existing.CompetitionID == s.CompetitionID && existing.TeamID == s.TeamID && existing.Scope == s.Scope {
			return repositories.ErrStandingTeamInvalid
		}
	}
	s.ID = r.db.next("standings")
	stored := *s
	stored.Team = nil
	r.db.state.standings[s.ID] = stored
	return nil
}

func (r *memStandings) Create(ctx context.Context, exec repositories.SQLExecutor, standing *models.TeamStanding) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.create(standing)
}

func (r *memStandings) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, standings []*models.TeamStanding) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range standings {
		if err := r.create(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *memStandings) get(competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, bool) {
	for _, s := range r.db.state.standings {
		if s.CompetitionID == competitionID && s.TeamID == teamID && s.Scope == scope {
			s := s
			return &s, true
		}
	}
	return nil, false
}

func (r *memStandings) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.get(competitionID, teamID, scope); ok {
		return s, nil
	}
	return nil, repositories.ErrTeamStandingNotFound
}

func (r *memStandings) Update(ctx context.Context, exec repositories.SQLExecutor, standing *models.TeamStanding) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.standings[standing.ID]; !ok {
		return repositories.ErrTeamStandingNotFound
	}
	stored := *standing
	stored.Team = nil
	r.db.state.standings[standing.ID] = stored
	return nil
}

func (r *memStandings) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int, scope models.StandingScope, sortByRank bool) ([]*models.TeamStanding, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rows := make([]models.TeamStanding, 0)
	for _, s := range r.db.state.standings {
		if s.CompetitionID == competitionID && s.Scope == scope {
			rows = append(rows, s)
		}
	}
	if sortByRank {
		tabulation.SortStandings(rows)
	} else {
		sort.Slice(rows, func(i, j int) bool { return rows[i].TeamID < rows[j].TeamID })
	}
	out := make([]*models.TeamStanding, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *memStandings) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, competitionID, teamID int, scope models.StandingScope) (*models.TeamStanding, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.get(competitionID, teamID, scope); ok {
		return s, nil
	}
	s := tabulation.ZeroStanding(competitionID, teamID, scope)
	if err := r.create(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memStandings) DeleteByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int, scope models.StandingScope) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.state.standings {
		if s.CompetitionID == competitionID && (scope == "" || s.Scope == scope) {
			delete(r.db.state.standings, id)
		}
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []brackets.WebSocketMessage
}

func (n *fakeNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg, ok := message.(brackets.WebSocketMessage); ok {
		n.messages = append(n.messages, msg)
	}
}

func (n *fakeNotifier) ofType(messageType string) []brackets.WebSocketMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]brackets.WebSocketMessage, 0)
	for _, m := range n.messages {
		if m.Type == messageType {
			out = append(out, m)
		}
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *fakeStore) Put(ctx context.Context, key string, contentType string, body io.Reader) (*storage.PutResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = buf.Bytes()
	return &storage.PutResult{Key: key, Location: "https://cdn.example.org/" + key}, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.org/" + key
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
