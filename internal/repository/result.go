package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"minesweeper-bot/internal/model"
)

// Errors surfaced by Apply. Both are expected conditions, not faults.
var (
	ErrUserBlocked    = errors.New("user is blocked")
	ErrDuplicateRound = errors.New("round already recorded")
)

const pgUniqueViolation = "23505"

// ApplyInput carries one validated submission into the store.
type ApplyInput struct {
	UserID       int64
	FirstName    string
	LastName     *string
	Username     *string
	LanguageCode *string
	IsPremium    bool

	Mode  string
	Rows  int
	Cols  int
	Mines int
	Score int
	IsWin bool

	// Suspicious sets the player's sticky suspicion flag alongside the
	// normal aggregate update.
	Suspicious bool
	// RoundToken, when non-nil, de-duplicates retried submissions.
	RoundToken *string
}

// ResultRepository applies accepted submissions to the aggregate store.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository instance.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Apply runs the submission transaction: lock-or-create the player row,
// reject if blocked, append the game record and update the aggregates.
// All effects commit together or not at all.
//
// The row lock (SELECT ... FOR UPDATE) serializes concurrent submissions
// for the same player so streak math never reads a stale aggregate;
// submissions for different players lock different rows and do not
// contend. Returns the updated user on success.
func (r *ResultRepository) Apply(ctx context.Context, in ApplyInput) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := lockOrCreateUser(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	// A block is a standing condition, checked on every write even for
	// submissions that passed validation.
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}

	const insertRecord = `
		INSERT INTO game_records (user_id, game_mode, "rows", cols, mines, score, is_win, round_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err = tx.Exec(ctx, insertRecord,
		in.UserID, in.Mode, in.Rows, in.Cols, in.Mines, in.Score, in.IsWin, in.RoundToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateRound
		}
		return nil, fmt.Errorf("failed to insert game record: %w", err)
	}

	user.ApplyGameResult(in.IsWin)
	if in.Suspicious {
		user.IsSuspicious = true
	}

	const updateUser = `
		UPDATE users
		SET total_games = $2, current_streak = $3, best_streak = $4, is_suspicious = $5
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, updateUser,
		user.ID, user.TotalGames, user.CurrentStreak, user.BestStreak, user.IsSuspicious)
	if err != nil {
		return nil, fmt.Errorf("failed to update user stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}
	return user, nil
}

// lockOrCreateUser loads the player row under a row lock, creating it
// first if this is the player's first submission.
func lockOrCreateUser(ctx context.Context, tx pgx.Tx, in ApplyInput) (*model.User, error) {
	lockQuery := `SELECT` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(tx.QueryRow(ctx, lockQuery, in.UserID))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	// First submission: create the row. ON CONFLICT covers the race where
	// another submission creates it between our select and insert.
	const createQuery = `
		INSERT INTO users (id, first_name, last_name, username, language_code, is_premium)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = tx.Exec(ctx, createQuery,
		in.UserID, in.FirstName, in.LastName, in.Username, in.LanguageCode, in.IsPremium)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user, err = scanUser(tx.QueryRow(ctx, lockQuery, in.UserID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user after create: %w", err)
	}
	return user, nil
}
