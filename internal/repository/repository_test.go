// Package repository tests use testcontainers-go to spin up a PostgreSQL
// container. They are skipped when Docker is not available.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"minesweeper-bot/internal/game"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

func beginnerInput(userID int64, isWin bool, score int) ApplyInput {
	return ApplyInput{
		UserID:    userID,
		FirstName: "Tester",
		Mode:      game.ModeBeginner,
		Rows:      9, Cols: 9, Mines: 10,
		Score: score,
		IsWin: isWin,
	}
}

// ============================================================================
// ResultRepository Tests
// ============================================================================

func TestResultRepository_FirstSubmissionCreatesUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	_, err := users.GetByID(ctx, 100)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user, err := results.Apply(ctx, beginnerInput(100, true, 42))
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.ID)
	assert.Equal(t, 1, user.TotalGames)
	assert.Equal(t, 1, user.CurrentStreak)
	assert.Equal(t, 1, user.BestStreak)

	stored, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Tester", stored.FirstName)
	assert.Equal(t, 1, stored.TotalGames)
}

func TestResultRepository_StreakMath(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	ctx := context.Background()

	// Three wins build a streak
	var err error
	for i := 0; i < 3; i++ {
		_, err = results.Apply(ctx, beginnerInput(100, true, 30+i))
		require.NoError(t, err)
	}

	// A loss resets current but not best, and still counts the game
	user, err := results.Apply(ctx, beginnerInput(100, false, 10))
	require.NoError(t, err)
	assert.Equal(t, 4, user.TotalGames)
	assert.Equal(t, 0, user.CurrentStreak)
	assert.Equal(t, 3, user.BestStreak)

	// A new win restarts the streak below the best
	user, err = results.Apply(ctx, beginnerInput(100, true, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, user.CurrentStreak)
	assert.Equal(t, 3, user.BestStreak)
	assert.GreaterOrEqual(t, user.BestStreak, user.CurrentStreak)
}

func TestResultRepository_BlockedUserRejectedWithoutMutation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	games := NewGameRepository(pool)
	ctx := context.Background()

	_, err := results.Apply(ctx, beginnerInput(100, true, 42))
	require.NoError(t, err)
	require.NoError(t, users.SetBlocked(ctx, 100, true))

	_, err = results.Apply(ctx, beginnerInput(100, true, 40))
	assert.ErrorIs(t, err, ErrUserBlocked)

	// No aggregate change and no record appended
	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, user.TotalGames)

	records, err := games.RecordsByUser(ctx, 100, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestResultRepository_SuspicionFlagIsSticky(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	in := ApplyInput{
		UserID:    100,
		FirstName: "Tester",
		Mode:      game.ModeExpert,
		Rows:      16, Cols: 30, Mines: 99,
		Score: 25, IsWin: true,
		Suspicious: true,
	}
	user, err := results.Apply(ctx, in)
	require.NoError(t, err)
	assert.True(t, user.IsSuspicious)

	// A later clean submission does not clear the flag
	_, err = results.Apply(ctx, beginnerInput(100, true, 60))
	require.NoError(t, err)

	user, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsSuspicious)
}

func TestResultRepository_DuplicateRoundToken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	token := "round-abc123"
	in := beginnerInput(100, true, 42)
	in.RoundToken = &token

	_, err := results.Apply(ctx, in)
	require.NoError(t, err)

	// The retried submission is detected and applies nothing
	_, err = results.Apply(ctx, in)
	assert.ErrorIs(t, err, ErrDuplicateRound)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, user.TotalGames)

	// The same token from a different player is a different round
	other := beginnerInput(200, true, 42)
	other.RoundToken = &token
	_, err = results.Apply(ctx, other)
	assert.NoError(t, err)
}

func TestResultRepository_ConcurrentWinsNoLostUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	// Seed the user so both goroutines hit the row-lock path
	_, err := results.Apply(ctx, beginnerInput(100, false, 10))
	require.NoError(t, err)

	const concurrent = 8
	var wg sync.WaitGroup
	errs := make(chan error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := results.Apply(ctx, beginnerInput(100, true, score))
			errs <- err
		}(20 + i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every win must be reflected: the row lock forbids lost updates
	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, concurrent+1, user.TotalGames)
	assert.Equal(t, concurrent, user.CurrentStreak)
	assert.Equal(t, concurrent, user.BestStreak)
}

// ============================================================================
// GameRepository Tests
// ============================================================================

func TestGameRepository_Leaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	games := NewGameRepository(pool)
	ctx := context.Background()

	submit := func(userID int64, name string, isWin bool, score int) {
		in := beginnerInput(userID, isWin, score)
		in.FirstName = name
		_, err := results.Apply(ctx, in)
		require.NoError(t, err)
	}

	submit(1, "Alice", true, 50)
	submit(1, "Alice", true, 35) // Alice's best
	submit(2, "Bob", true, 35)   // ties Alice but later
	submit(3, "Carol", true, 20) // best overall
	submit(4, "Dave", false, 5)  // losses never rank

	entries, err := games.Leaderboard(ctx, game.ModeBeginner, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(3), entries[0].UserID)
	assert.Equal(t, 20, entries[0].BestTime)
	assert.Equal(t, 1, entries[0].Rank)

	// Tie on 35s: Alice achieved it first
	assert.Equal(t, int64(1), entries[1].UserID)
	assert.Equal(t, int64(2), entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestGameRepository_LeaderboardEmptyMode(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	games := NewGameRepository(pool)

	entries, err := games.Leaderboard(context.Background(), game.ModeExpert, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGameRepository_LeaderboardLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	games := NewGameRepository(pool)
	ctx := context.Background()

	for i := int64(1); i <= 7; i++ {
		_, err := results.Apply(ctx, beginnerInput(i, true, 100+int(i)))
		require.NoError(t, err)
	}

	entries, err := games.Leaderboard(ctx, game.ModeBeginner, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestGameRepository_PlayerModeStats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	games := NewGameRepository(pool)
	ctx := context.Background()

	_, err := results.Apply(ctx, beginnerInput(100, true, 50))
	require.NoError(t, err)
	_, err = results.Apply(ctx, beginnerInput(100, true, 30))
	require.NoError(t, err)
	_, err = results.Apply(ctx, beginnerInput(100, false, 10))
	require.NoError(t, err)

	expert := ApplyInput{
		UserID:    100,
		FirstName: "Tester",
		Mode:      game.ModeExpert,
		Rows:      16, Cols: 30, Mines: 99,
		Score: 200, IsWin: false,
	}
	_, err = results.Apply(ctx, expert)
	require.NoError(t, err)

	stats, err := games.PlayerModeStats(ctx, 100)
	require.NoError(t, err)

	beginner := stats[game.ModeBeginner]
	assert.Equal(t, 2, beginner.Wins)
	require.NotNil(t, beginner.BestTime)
	assert.Equal(t, 30, *beginner.BestTime)

	// Games but no wins: present, best time undefined
	exp := stats[game.ModeExpert]
	assert.Equal(t, 0, exp.Wins)
	assert.Nil(t, exp.BestTime)

	_, ok := stats[game.ModeIntermediate]
	assert.False(t, ok)
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_Flags(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	_, err := results.Apply(ctx, beginnerInput(100, true, 42))
	require.NoError(t, err)

	require.NoError(t, users.SetAdmin(ctx, 100, true))
	require.NoError(t, users.SetSuspicious(ctx, 100, true))

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.True(t, user.IsSuspicious)

	admins, err := users.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	suspicious, err := users.ListSuspicious(ctx, 10)
	require.NoError(t, err)
	require.Len(t, suspicious, 1)

	// Flag updates on unknown users report not found
	err = users.SetBlocked(ctx, 999, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_ResetStats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	_, err := results.Apply(ctx, beginnerInput(100, true, 42))
	require.NoError(t, err)

	require.NoError(t, users.ResetStats(ctx, 100))

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, user.TotalGames)
	assert.Zero(t, user.CurrentStreak)
	assert.Zero(t, user.BestStreak)
}

func TestUserRepository_RecountTotalGames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := results.Apply(ctx, beginnerInput(100, true, 30+i))
		require.NoError(t, err)
	}

	// Force drift in the cached counter
	_, err := pool.Exec(ctx, `UPDATE users SET total_games = 99 WHERE id = 100`)
	require.NoError(t, err)

	fixed, err := users.RecountTotalGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, user.TotalGames)

	// A second pass finds nothing to fix
	fixed, err = users.RecountTotalGames(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestUserRepository_BotStats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	results := NewResultRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	_, err := results.Apply(ctx, beginnerInput(1, true, 42))
	require.NoError(t, err)
	_, err = results.Apply(ctx, beginnerInput(2, false, 10))
	require.NoError(t, err)
	require.NoError(t, users.SetBlocked(ctx, 2, true))

	stats, err := users.BotStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Users)
	assert.Equal(t, int64(2), stats.Games)
	assert.Equal(t, int64(1), stats.Wins)
	assert.Equal(t, int64(0), stats.Suspicious)
	assert.Equal(t, int64(1), stats.Blocked)
}
