package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/database"
	"github.com/hirelens/hirelens-backend/internal/engine"
	"github.com/hirelens/hirelens-backend/internal/handler"
	"github.com/hirelens/hirelens-backend/internal/loader"
	"github.com/hirelens/hirelens-backend/internal/logger"
	"github.com/hirelens/hirelens-backend/internal/progress"
	"github.com/hirelens/hirelens-backend/internal/questionsource"
	"github.com/hirelens/hirelens-backend/internal/router"
	"github.com/hirelens/hirelens-backend/internal/service"
	"github.com/hirelens/hirelens-backend/internal/submit"
	"github.com/hirelens/hirelens-backend/internal/validator"
	"github.com/hirelens/hirelens-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting HireLens Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Question Sources & Loader ─────────────────────────────────────
	// Without an API key the generated-start endpoint reports load failure;
	// pre-authored assessments still work.
	var generatedSource loader.GeneratedSource
	if cfg.LLMAPIKey != "" {
		llmSource, err := questionsource.NewLLMSource(questionsource.LLMConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Count:   cfg.GeneratedSetSize,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize LLM question source")
		}
		generatedSource = llmSource
	} else {
		log.Warn().Msg("LLM_API_KEY not set, generated question sets disabled")
	}
	preSource := questionsource.NewPreAuthoredSource(pool)
	ldr := loader.New(generatedSource, preSource, log)

	// ─── Progress Persistence ──────────────────────────────────────────
	store := progress.NewRedisStore(rdb)
	persister := progress.NewPersister(store, log)

	// ─── Submission Coordinator ────────────────────────────────────────
	tokenService := service.NewTokenService(cfg, rdb)
	submissionSvc := submit.NewHTTPService(cfg.SubmissionBaseURL)
	archive := submit.NewRedisArchive(rdb)
	coordinator := submit.NewCoordinator(submissionSvc, persister, archive, tokenService, log)

	// ─── Session Engine ────────────────────────────────────────────────
	manager := engine.NewManager(persister.SaveFunc(), coordinator.SubmitFunc(), cfg.ViolationLimit, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(ctx, ldr, persister, submissionSvc, manager, tokenService, coordinator, log),
		WS:      handler.NewWSHandler(manager, rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewSnapshotWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	screeningWorker := worker.NewScreeningWorker(pool, rdb, log)

	go snapshotWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go screeningWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop session goroutines so final snapshots reach the queue.
	cancel()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
