// Package main reconciles stored user aggregates against the game record
// log. Run it after manual database surgery or suspected counter drift.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/pkg/db"
	"minesweeper-bot/internal/repository"
)

func main() {
	configPath := flag.String("config", "config", "path to the config directory")
	timeout := flag.Duration("timeout", 30*time.Second, "overall run timeout")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	userRepo := repository.NewUserRepository(dbPool.Pool)

	stats, err := userRepo.BotStats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read bot statistics")
	}
	log.Info().
		Int64("total_users", stats.Users).
		Int64("total_games", stats.Games).
		Msg("Current state")

	fixed, err := userRepo.RecountTotalGames(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to recount total games")
	}

	if fixed == 0 {
		log.Info().Msg("All user counters already match the record log")
		return
	}
	log.Info().Int64("users_fixed", fixed).Msg("Counters reconciled")
}
