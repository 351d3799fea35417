package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/bp-tabulation/docs"
	"github.com/Dosada05/bp-tabulation/handlers"
	"github.com/Dosada05/bp-tabulation/middleware"
	"github.com/Dosada05/bp-tabulation/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options задаёт параметры, общие для всех маршрутов.
type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	PublicLimiter  *middleware.RateLimiter
}

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Standings  *handlers.StandingsHandler
	Match      *handlers.MatchHandler
	Round      *handlers.RoundHandler
	Results    *handlers.ResultsHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, opts Options, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Документация API
	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.SwaggerJSON)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Публичные маршруты
	router.Group(func(r chi.Router) {
		if opts.PublicLimiter != nil {
			r.Use(opts.PublicLimiter.Middleware)
		}

		// WebSocket без таймаута: соединение живёт дольше запроса
		r.Get("/ws/competitions/{competitionID}", h.WebSocket.ServeWs)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(15 * time.Second))

			r.Get("/competitions/{competitionID}/standings", h.Standings.PublicStandingsHandler)
			r.Get("/competitions/{competitionID}/rounds", h.Round.ListRoundsHandler)
			r.Get("/rounds/{roundID}/results", h.Results.RoundResultsHandler(false))
			r.Get("/matches/{matchID}/results", h.Results.MatchResultsHandler(false))
		})
	})

	// Судьи (и администраторы) отправляют баллы
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.RequireRole(models.RoleJudge, models.RoleAdmin))

		r.Post("/matches/{matchID}/scores", h.Match.SubmitScoresHandler)
	})

	// Администрирование турнира
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.RequireRole(models.RoleAdmin))

		r.Route("/competitions/{competitionID}", func(r chi.Router) {
			r.Post("/generate", h.Tournament.GenerateHandler)
			r.Get("/standings", h.Standings.AdminStandingsHandler)
			r.Post("/standings/recompute", h.Standings.RecomputeHandler)
			r.Get("/stage", h.Tournament.GetStageHandler)
			r.Post("/stage/advance", h.Tournament.AdvanceStageHandler)
		})

		r.Route("/rounds/{roundID}", func(r chi.Router) {
			r.Post("/freeze", h.Round.FreezeHandler)
			r.Put("/motion", h.Round.MotionHandler)
			r.Post("/matches", h.Match.CreateRoomHandler)
			r.Get("/results", h.Results.RoundResultsHandler(true))
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Post("/complete", h.Match.CompleteHandler)
			r.Post("/reopen", h.Match.ReopenHandler)
			r.Put("/judges", h.Match.AssignJudgesHandler)
			r.Get("/results", h.Results.MatchResultsHandler(true))
		})
	})
}
