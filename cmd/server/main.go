package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/api"
	"github.com/campuslink/chatd/internal/api/middleware"
	"github.com/campuslink/chatd/internal/chat"
	"github.com/campuslink/chatd/internal/config"
	"github.com/campuslink/chatd/internal/directory"
	"github.com/campuslink/chatd/internal/handlers"
	"github.com/campuslink/chatd/internal/hub"
	"github.com/campuslink/chatd/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Group store: Postgres when configured, SQLite otherwise
	var groups store.GroupStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		logger.Info().Msg("connected to PostgreSQL")
		groups = pgStore
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite group store")
		groups = sqliteStore
	}

	// Message log and counters: Redis when configured, in-memory otherwise
	var messages store.MessageLog
	var counters store.CounterStore
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
		messages = redisStore
		counters = redisStore
	} else {
		logger.Warn().Msg("REDIS_URL not set, messages and counters are in-memory")
		messages = store.NewMemoryLog()
		counters = store.NewMemoryCounters()
	}

	// User directory: Mongo when configured, in-memory otherwise
	var dir directory.Directory
	if cfg.MongoURL != "" {
		mongoDir, err := directory.NewMongoDirectory(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer mongoDir.Close(ctx)
		logger.Info().Msg("connected to MongoDB user directory")
		dir = mongoDir
	} else {
		logger.Warn().Msg("MONGO_URL not set, user directory is in-memory")
		dir = directory.NewMemoryDirectory()
	}

	// Wire the engine
	h := hub.NewHub(logger)
	svc := chat.NewService(groups, messages, counters, dir, h, logger, chat.Options{
		MaxMessageBytes: cfg.MaxMessageBytes,
		HistoryLimit:    cfg.HistoryLimit,
	})
	handler := handlers.NewHandler(svc, h, groups, redisStore, dir, logger)

	// Rate limiting needs Redis; in-memory deployments run without it
	var limiter *middleware.RateLimiter
	if redisStore != nil {
		limiter = middleware.NewRateLimiter(redisStore.Client(), logger, cfg.RateLimitWhitelist)
	}

	// Create router
	router := api.NewRouter(cfg, handler, limiter, logger)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting chatd server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
