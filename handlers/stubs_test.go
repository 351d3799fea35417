package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/bp-tabulation/middleware"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/services"
	"github.com/Dosada05/bp-tabulation/tabulation"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Заглушки сервисов: каждый метод делегирует полю-функции.

type stubTournaments struct {
	generate func(ctx context.Context, competitionID int, input services.GenerateRoundsInput) (*services.GenerationResult, error)
}

func (s *stubTournaments) GenerateRounds(ctx context.Context, competitionID int, input services.GenerateRoundsInput) (*services.GenerationResult, error) {
	return s.generate(ctx, competitionID, input)
}

type stubStages struct {
	current func(ctx context.Context, competitionID int) (*services.StageStatus, error)
	advance func(ctx context.Context, competitionID int, input services.AdvanceStageInput) (*services.AdvanceResult, error)
}

func (s *stubStages) CurrentStage(ctx context.Context, competitionID int) (*services.StageStatus, error) {
	return s.current(ctx, competitionID)
}

func (s *stubStages) IsStageComplete(context.Context, int, models.Stage) (bool, error) {
	return false, nil
}

func (s *stubStages) AdvanceStage(ctx context.Context, competitionID int, input services.AdvanceStageInput) (*services.AdvanceResult, error) {
	return s.advance(ctx, competitionID, input)
}

type stubStandings struct {
	list      func(ctx context.Context, competitionID int, scope models.StandingScope) (*services.Leaderboard, error)
	public    func(ctx context.Context, competitionID int, scope models.StandingScope) (*services.Leaderboard, error)
	recompute func(ctx context.Context, competitionID int) (*services.RecomputeResult, error)
}

func (s *stubStandings) ListStandings(ctx context.Context, competitionID int, scope models.StandingScope) (*services.Leaderboard, error) {
	return s.list(ctx, competitionID, scope)
}

func (s *stubStandings) PublicLeaderboard(ctx context.Context, competitionID int, scope models.StandingScope) (*services.Leaderboard, error) {
	return s.public(ctx, competitionID, scope)
}

func (s *stubStandings) RecomputeStandings(ctx context.Context, competitionID int) (*services.RecomputeResult, error) {
	return s.recompute(ctx, competitionID)
}

func (s *stubStandings) PublishLeaderboard(context.Context, int) {}

func (s *stubStandings) AuditStandings(context.Context) ([]services.StandingDrift, error) {
	return nil, nil
}

type stubMatches struct {
	submit   func(ctx context.Context, matchID, judgeID int, input services.SubmitScoresInput) ([]models.Score, error)
	complete func(ctx context.Context, matchID int) (*tabulation.MatchResult, error)
	reopen   func(ctx context.Context, matchID int) (*models.Match, error)
	assign   func(ctx context.Context, matchID int, judgeIDs []int) (*models.Match, error)
	create   func(ctx context.Context, roundID int, input services.CreateRoomInput) (*models.Match, error)
}

func (s *stubMatches) SubmitScores(ctx context.Context, matchID, judgeID int, input services.SubmitScoresInput) ([]models.Score, error) {
	return s.submit(ctx, matchID, judgeID, input)
}

func (s *stubMatches) CompleteMatch(ctx context.Context, matchID int) (*tabulation.MatchResult, error) {
	return s.complete(ctx, matchID)
}

func (s *stubMatches) ReopenMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.reopen(ctx, matchID)
}

func (s *stubMatches) AssignJudges(ctx context.Context, matchID int, judgeIDs []int) (*models.Match, error) {
	return s.assign(ctx, matchID, judgeIDs)
}

func (s *stubMatches) CreateRoom(ctx context.Context, roundID int, input services.CreateRoomInput) (*models.Match, error) {
	return s.create(ctx, roundID, input)
}

type stubRounds struct {
	list   func(ctx context.Context, competitionID int, privileged bool) ([]*models.Round, error)
	freeze func(ctx context.Context, roundID int, frozen bool, actorID int) (*models.Round, error)
	motion func(ctx context.Context, roundID int, motion string) (*models.Round, error)
}

func (s *stubRounds) ListRounds(ctx context.Context, competitionID int, privileged bool) ([]*models.Round, error) {
	return s.list(ctx, competitionID, privileged)
}

func (s *stubRounds) SetFrozen(ctx context.Context, roundID int, frozen bool, actorID int) (*models.Round, error) {
	return s.freeze(ctx, roundID, frozen, actorID)
}

func (s *stubRounds) SetMotion(ctx context.Context, roundID int, motion string) (*models.Round, error) {
	return s.motion(ctx, roundID, motion)
}

type stubResults struct {
	round func(ctx context.Context, roundID int, privileged bool) (*services.RoundResults, error)
	match func(ctx context.Context, matchID int, privileged bool) (*services.RoomResult, error)
}

func (s *stubResults) RoundResults(ctx context.Context, roundID int, privileged bool) (*services.RoundResults, error) {
	return s.round(ctx, roundID, privileged)
}

func (s *stubResults) MatchResults(ctx context.Context, matchID int, privileged bool) (*services.RoomResult, error) {
	return s.match(ctx, matchID, privileged)
}

// asUser подставляет identity так, как её оставляет middleware.Authenticate.
func asUser(userID int, role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithIdentity(r.Context(), middleware.Identity{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// serve прогоняет один запрос через chi, чтобы URLParam работал как в проде.
func serve(t *testing.T, method, pattern, target, body string, h http.HandlerFunc, mws ...func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.With(mws...).MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	env, ok := body["error"].(map[string]any)
	require.True(t, ok, "no error envelope in %s", rec.Body.String())
	kind, _ := env["kind"].(string)
	return kind
}
