// Package main is the entry point for the Minesweeper bot and its
// webapp-facing API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"minesweeper-bot/internal/api"
	"minesweeper-bot/internal/bot"
	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/initdata"
	"minesweeper-bot/internal/pkg/db"
	"minesweeper-bot/internal/pkg/ratelimit"
	"minesweeper-bot/internal/repository"
	"minesweeper-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	resultRepo := repository.NewResultRepository(dbPool.Pool)

	// Initialize the rate limiter. An empty Redis URL disables it.
	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.RateLimit.RedisURL != "" {
		redisLimiter, err := ratelimit.New(cfg.RateLimit.RedisURL, cfg.RateLimit.PerWindow, cfg.RateLimit.Window)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		limiter = redisLimiter
		log.Info().
			Int("per_window", cfg.RateLimit.PerWindow).
			Dur("window", cfg.RateLimit.Window).
			Msg("Rate limiter enabled")
	}

	// Initialize services
	verifier := initdata.New(cfg.Bot.Token, cfg.Policy.InitDataMaxAge)
	validator := &game.Validator{
		MinWinSeconds:      cfg.Policy.MinWinSeconds,
		MaxWinSeconds:      cfg.Policy.MaxWinSeconds,
		SuspicionThreshold: cfg.Policy.SuspicionThreshold,
	}

	resultService := service.NewResultService(verifier, validator, resultRepo, limiter)
	statsService := service.NewStatsService(userRepo, gameRepo)
	adminService := service.NewAdminService(userRepo)

	// Initialize the HTTP API server
	apiServer := api.NewServer(resultService, statsService, dbPool.HealthCheck, cfg.Server.WebAppDir)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:       cfg,
		StatsService: statsService,
		AdminService: adminService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start API server in a goroutine
	go func() {
		if err := apiServer.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server stopped")
			sigChan <- syscall.SIGTERM
		}
	}()

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop accepting updates, then drain the server
	telegramBot.Stop()
	cancel()
	log.Info().Msg("Stopped gracefully")
}
