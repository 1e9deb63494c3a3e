package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/database"
	"github.com/stemsi/quizroom-backend/internal/guard"
	"github.com/stemsi/quizroom-backend/internal/handler"
	"github.com/stemsi/quizroom-backend/internal/logger"
	"github.com/stemsi/quizroom-backend/internal/middleware"
	"github.com/stemsi/quizroom-backend/internal/repository"
	"github.com/stemsi/quizroom-backend/internal/router"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/session"
	"github.com/stemsi/quizroom-backend/internal/storage"
	"github.com/stemsi/quizroom-backend/internal/validator"
	"github.com/stemsi/quizroom-backend/internal/worker"
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
		Strs("subjects", cfg.QuizSubjects).
		Msg("Starting Quizroom Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService, log)
	questionService := service.NewQuestionService(questionRepo, rdb, cfg.QuestionCacheTTL, log)
	attemptService := service.NewAttemptService(attemptRepo, questionService, rdb, log)
	resultService := service.NewResultService(attemptRepo, questionService, log)
	settingService := service.NewSettingService(settingRepo, log)
	violationService := service.NewViolationService(violationRepo)
	quizBackend := service.NewQuizBackend(questionService, attemptService, resultService, settingService)

	defaultMinutes := int(cfg.QuizDuration / time.Minute)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, userService),
		StudentPortal: handler.NewStudentPortalHandler(attemptService, resultService),
		Admin:         handler.NewAdminHandler(attemptService, violationService),
		Question:      handler.NewQuestionHandler(questionService, settingService, cfg.QuizSubjects),
		Setting:       handler.NewSettingHandler(settingService, defaultMinutes),
		WS: handler.NewWSHandler(quizBackend, settingService, storage.NewRedisStore(rdb, cfg.SessionMirrorTTL), rdb,
			handler.QuizStreamConfig{
				Subjects: cfg.QuizSubjects,
				Session: session.Options{
					Duration:    cfg.QuizDuration,
					VisitPolicy: session.ParseVisitPolicy(cfg.QuizVisitPolicy),
				},
				Guard:          guard.DefaultConfig(),
				AllowedOrigins: cfg.AllowedOrigins,
			}, log),
		System: handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	for _, w := range []interface{ Start(context.Context) }{
		worker.NewAutosaveWorker(pool, rdb, log),
		worker.NewStartTimeWorker(pool, rdb, log),
		worker.NewViolationWorker(pool, rdb, log),
	} {
		w := w
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.Start(workerCtx)
		}()
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the question bank before accepting traffic so the first wave of
	// students does not hit PostgreSQL all at once.
	if _, err := questionService.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Question cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	var authLimiter *middleware.RateLimiter
	stopSweep := make(chan struct{})
	if cfg.AuthRateLimit > 0 {
		authLimiter = middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
		go authLimiter.Sweep(time.Minute, 10*time.Minute, stopSweep)
	}
	r := router.SetupRouter(authService, handlers, cfg, authLimiter, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Hijacked WebSocket connections
	// are not tracked by Shutdown; their sessions resume from the mirror.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	close(stopSweep)

	// 2. Stop background workers and wait for their buffers to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
