package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/Dosada05/bp-tabulation/config"
	"github.com/Dosada05/bp-tabulation/db"
	"github.com/Dosada05/bp-tabulation/handlers"
	"github.com/Dosada05/bp-tabulation/middleware"
	"github.com/Dosada05/bp-tabulation/repositories"
	api "github.com/Dosada05/bp-tabulation/routes"
	"github.com/Dosada05/bp-tabulation/services"
	"github.com/Dosada05/bp-tabulation/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("archive_enabled", cfg.ArchiveEnabled()),
		slog.Int("preliminary_rounds", cfg.Format.PreliminaryRounds),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Архив результатов в Cloudflare R2 (необязательно)
	var archiveStore storage.ObjectStore
	if cfg.ArchiveEnabled() {
		archiveStore, err = storage.NewCloudflareR2Store(context.Background(), storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 archive store initialized")
	} else {
		logger.Info("results archive disabled: R2 settings are not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	repos := services.Repositories{
		Competitions: repositories.NewPostgresCompetitionRepository(dbConn, cfg.TeamMemberCount),
		Teams:        repositories.NewPostgresTeamRepository(dbConn),
		Rounds:       repositories.NewPostgresRoundRepository(dbConn),
		Matches:      repositories.NewPostgresMatchRepository(dbConn),
		Scores:       repositories.NewPostgresScoreRepository(dbConn),
		Standings:    repositories.NewPostgresTeamStandingRepository(dbConn),
	}
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	tx := services.NewSQLTransactor(dbConn, logger)
	guard := services.NewCompetitionGuard()

	standingsService := services.NewStandingsService(tx, repos, guard, wsHub, logger)
	archiveService := services.NewArchiveService(archiveStore, standingsService, logger)
	tournamentService := services.NewTournamentService(
		tx,
		repos,
		brackets.NewBPGenerator(nil),
		cfg.Format,
		guard,
		standingsService,
		logger,
	)
	stageService := services.NewStageService(
		tx,
		repos,
		cfg.Format,
		guard,
		standingsService,
		archiveService,
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(tx, repos, guard, standingsService, wsHub, logger)
	roundService := services.NewRoundService(tx, repos, standingsService, wsHub, logger)
	resultsService := services.NewResultsService(repos)
	logger.Info("Services initialized")

	// Периодическая сверка таблицы с историей матчей
	if cfg.StandingsAuditInterval > 0 {
		scheduler, err := services.StartStandingsAudit(standingsService, cfg.StandingsAuditInterval, logger)
		if err != nil {
			logger.Error("failed to start standings audit", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				logger.Error("failed to stop standings audit", slog.Any("error", err))
			}
		}()
		logger.Info("standings audit scheduled", slog.Duration("interval", cfg.StandingsAuditInterval))
	}

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService, stageService),
		Standings:  handlers.NewStandingsHandler(standingsService),
		Match:      handlers.NewMatchHandler(matchService),
		Round:      handlers.NewRoundHandler(roundService),
		Results:    handlers.NewResultsHandler(resultsService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PublicLimiter:  middleware.NewRateLimiter(cfg.PublicRateLimitRPS, cfg.PublicRateLimitBurst),
	}, h)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
