// Package model defines the data models for the Minesweeper bot.
package model

import "time"

// User represents a Telegram user and their durable game aggregates.
// The row is created lazily on first game submission and never deleted.
type User struct {
	ID           int64     `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     *string   `db:"last_name"`
	Username     *string   `db:"username"`
	LanguageCode *string   `db:"language_code"`
	Referrer     *string   `db:"referrer"`
	CreatedAt    time.Time `db:"created_at"`

	IsSuperadmin bool `db:"is_superadmin"`
	IsAdmin      bool `db:"is_admin"`
	IsSuspicious bool `db:"is_suspicious"`
	IsBlocked    bool `db:"is_blocked"`
	IsPremium    bool `db:"is_premium"`

	// Game aggregates. TotalGames is a cache over the game_records log
	// and can be recomputed from it (see cmd/reconcile).
	TotalGames    int `db:"total_games"`
	CurrentStreak int `db:"current_streak"`
	BestStreak    int `db:"best_streak"`
}

// ApplyGameResult applies one accepted submission to the user's aggregates.
// Invariant: BestStreak >= CurrentStreak holds after every call.
func (u *User) ApplyGameResult(isWin bool) {
	u.TotalGames++
	if isWin {
		u.CurrentStreak++
		if u.CurrentStreak > u.BestStreak {
			u.BestStreak = u.CurrentStreak
		}
	} else {
		u.CurrentStreak = 0
	}
}

// GameRecord is one accepted submission. Records are append-only: they are
// never updated or deleted by normal operation.
type GameRecord struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	GameMode   string    `db:"game_mode"`
	Rows       int       `db:"rows"`
	Cols       int       `db:"cols"`
	Mines      int       `db:"mines"`
	Score      int       `db:"score"`
	IsWin      bool      `db:"is_win"`
	RoundToken *string   `db:"round_token"`
	CreatedAt  time.Time `db:"created_at"`
}

// LeaderboardEntry is one row of the best-time ranking for a mode.
type LeaderboardEntry struct {
	Rank     int    `db:"-"`
	UserID   int64  `db:"user_id"`
	Name     string `db:"name"`
	BestTime int    `db:"best_time"`
}

// ModeStats summarizes a single player's results in one mode.
// BestTime is nil when the player has no recorded win in the mode.
type ModeStats struct {
	Wins     int  `db:"wins"`
	BestTime *int `db:"best_time"`
}

// PlayerStats is the per-player stats view exposed by the API and /profile.
type PlayerStats struct {
	UserID        int64
	TotalGames    int
	CurrentStreak int
	BestStreak    int
	Modes         map[string]ModeStats
}

// BotStats holds global counters for the admin /stats command.
type BotStats struct {
	Users      int64
	Games      int64
	Wins       int64
	Suspicious int64
	Blocked    int64
}
