package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"minesweeper-bot/internal/model"
)

// GameRepository provides read-side queries over the game_records log.
// It never mutates anything: leaderboards and stats are pure reads over
// committed data.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// Leaderboard returns the top players for a mode, ranked by their best
// (lowest) winning time. Ties are broken by whoever reached the time
// first. Modes with no recorded wins yield an empty ranking.
func (r *GameRepository) Leaderboard(ctx context.Context, mode string, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT user_id, name, best_time
		FROM (
			SELECT r.user_id,
			       u.first_name AS name,
			       r.score AS best_time,
			       r.created_at AS achieved_at,
			       ROW_NUMBER() OVER (
			           PARTITION BY r.user_id
			           ORDER BY r.score, r.created_at
			       ) AS rn
			FROM game_records r
			JOIN users u ON u.id = r.user_id
			WHERE r.game_mode = $1 AND r.is_win
		) best
		WHERE rn = 1
		ORDER BY best_time, achieved_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var entry model.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Name, &entry.BestTime); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

// PlayerModeStats returns a player's win count and best winning time per
// mode. Modes the player never finished a game in are absent; BestTime is
// nil when the player has games but no wins in a mode.
func (r *GameRepository) PlayerModeStats(ctx context.Context, userID int64) (map[string]model.ModeStats, error) {
	const query = `
		SELECT game_mode,
		       COUNT(*) FILTER (WHERE is_win) AS wins,
		       MIN(score) FILTER (WHERE is_win) AS best_time
		FROM game_records
		WHERE user_id = $1
		GROUP BY game_mode
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]model.ModeStats)
	for rows.Next() {
		var mode string
		var s model.ModeStats
		if err := rows.Scan(&mode, &s.Wins, &s.BestTime); err != nil {
			return nil, fmt.Errorf("failed to scan mode stats: %w", err)
		}
		stats[mode] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mode stats: %w", err)
	}

	return stats, nil
}

// RecordsByUser retrieves a player's most recent records, newest first.
func (r *GameRepository) RecordsByUser(ctx context.Context, userID int64, limit int) ([]*model.GameRecord, error) {
	const query = `
		SELECT id, user_id, game_mode, "rows", cols, mines, score, is_win, round_token, created_at
		FROM game_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	var records []*model.GameRecord
	for rows.Next() {
		var rec model.GameRecord
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.GameMode,
			&rec.Rows,
			&rec.Cols,
			&rec.Mines,
			&rec.Score,
			&rec.IsWin,
			&rec.RoundToken,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}
