package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate applies the database schema. Statements are idempotent so the
// bot can run them on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// Migration 1: users table. The primary key is the Telegram-assigned
	// id; rows are created lazily on first submission and never deleted.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255),
			username VARCHAR(255),
			language_code VARCHAR(16),
			referrer VARCHAR(255),
			is_superadmin BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			is_premium BOOLEAN NOT NULL DEFAULT FALSE,
			total_games INT NOT NULL DEFAULT 0,
			current_streak INT NOT NULL DEFAULT 0,
			best_streak INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: append-only game record log. round_token backs the
	// optional idempotency key; uniqueness is per player.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_records (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			game_mode VARCHAR(20) NOT NULL DEFAULT 'beginner',
			"rows" INT NOT NULL DEFAULT 9,
			cols INT NOT NULL DEFAULT 9,
			mines INT NOT NULL DEFAULT 10,
			score INT NOT NULL,
			is_win BOOLEAN NOT NULL DEFAULT FALSE,
			round_token VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_records_user_time
			ON game_records(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_game_records_leaderboard
			ON game_records(game_mode, score) WHERE is_win;
		CREATE UNIQUE INDEX IF NOT EXISTS uq_game_records_round_token
			ON game_records(user_id, round_token) WHERE round_token IS NOT NULL;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: game_records table created")

	return nil
}
