// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"minesweeper-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// userColumns is the canonical column list scanned into model.User.
const userColumns = `
	id, first_name, last_name, username, language_code, referrer, created_at,
	is_superadmin, is_admin, is_suspicious, is_blocked, is_premium,
	total_games, current_streak, best_streak`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.LanguageCode,
		&user.Referrer,
		&user.CreatedAt,
		&user.IsSuperadmin,
		&user.IsAdmin,
		&user.IsSuspicious,
		&user.IsBlocked,
		&user.IsPremium,
		&user.TotalGames,
		&user.CurrentStreak,
		&user.BestStreak,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles user data persistence.
// Game aggregates on the user row are mutated only by ResultRepository.Apply
// and the admin operations below.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetBlocked sets or clears the user's blocked flag.
// A blocked user's submissions are rejected at write time.
func (r *UserRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return r.setFlag(ctx, id, "is_blocked", blocked)
}

// SetAdmin sets or clears the user's admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return r.setFlag(ctx, id, "is_admin", admin)
}

// SetSuspicious sets or clears the user's suspicion flag. The intake
// pipeline only ever sets it; clearing is an explicit admin action.
func (r *UserRepository) SetSuspicious(ctx context.Context, id int64, suspicious bool) error {
	return r.setFlag(ctx, id, "is_suspicious", suspicious)
}

func (r *UserRepository) setFlag(ctx context.Context, id int64, column string, value bool) error {
	// column is one of our own constants, never caller input
	query := fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = $1`, column)

	result, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetStats zeroes a user's aggregates. The game_records log is left
// untouched; a later recount would restore total_games from it.
func (r *UserRepository) ResetStats(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET total_games = 0, current_streak = 0, best_streak = 0
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reset stats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListSuspicious retrieves users carrying the suspicion flag.
func (r *UserRepository) ListSuspicious(ctx context.Context, limit int) ([]*model.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE is_suspicious
		ORDER BY total_games DESC
		LIMIT $1`

	return r.queryUsers(ctx, query, limit)
}

// ListAdmins retrieves users carrying the admin flag.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]*model.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE is_admin ORDER BY id`

	return r.queryUsers(ctx, query)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// BotStats returns the global counters shown by the admin /stats command.
func (r *UserRepository) BotStats(ctx context.Context) (*model.BotStats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM game_records),
			(SELECT COUNT(*) FROM game_records WHERE is_win),
			(SELECT COUNT(*) FROM users WHERE is_suspicious),
			(SELECT COUNT(*) FROM users WHERE is_blocked)
	`

	var stats model.BotStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Users,
		&stats.Games,
		&stats.Wins,
		&stats.Suspicious,
		&stats.Blocked,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot stats: %w", err)
	}
	return &stats, nil
}

// RecountTotalGames recomputes every user's total_games from the
// game_records log. The counter is a cache; the log is the source of
// truth. Returns the number of users whose counter had drifted.
func (r *UserRepository) RecountTotalGames(ctx context.Context) (int64, error) {
	const query = `
		UPDATE users u
		SET total_games = actual.cnt
		FROM (
			SELECT u2.id, COUNT(r.id) AS cnt
			FROM users u2
			LEFT JOIN game_records r ON r.user_id = u2.id
			GROUP BY u2.id
		) actual
		WHERE actual.id = u.id AND u.total_games <> actual.cnt
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to recount total games: %w", err)
	}
	return result.RowsAffected(), nil
}
