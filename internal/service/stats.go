package service

import (
	"context"
	"fmt"

	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/repository"
)

// Page sizes for the two leaderboard surfaces.
const (
	// LeaderboardSize is the public API leaderboard page size.
	LeaderboardSize = 10
	// CompactLeaderboardSize is the per-mode size of the in-chat view.
	CompactLeaderboardSize = 5
)

// StatsService answers read-only leaderboard and per-player stat queries.
// It only ever sees committed data: intake writes commit before anything
// here can observe them.
type StatsService struct {
	userRepo *repository.UserRepository
	gameRepo *repository.GameRepository
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(userRepo *repository.UserRepository, gameRepo *repository.GameRepository) *StatsService {
	return &StatsService{
		userRepo: userRepo,
		gameRepo: gameRepo,
	}
}

// Leaderboard returns the public best-time ranking for a mode.
// A mode with no recorded wins yields an empty ranking, not an error.
func (s *StatsService) Leaderboard(ctx context.Context, mode string) ([]*model.LeaderboardEntry, error) {
	return s.gameRepo.Leaderboard(ctx, mode, LeaderboardSize)
}

// CompactLeaderboard returns the top players per preset mode for the
// in-chat view, keyed by mode in display order.
func (s *StatsService) CompactLeaderboard(ctx context.Context, modes []string) (map[string][]*model.LeaderboardEntry, error) {
	boards := make(map[string][]*model.LeaderboardEntry, len(modes))
	for _, mode := range modes {
		entries, err := s.gameRepo.Leaderboard(ctx, mode, CompactLeaderboardSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s leaderboard: %w", mode, err)
		}
		boards[mode] = entries
	}
	return boards, nil
}

// PlayerStats returns a player's aggregates and per-mode breakdown.
// Returns repository.ErrUserNotFound for unknown players.
func (s *StatsService) PlayerStats(ctx context.Context, userID int64) (*model.PlayerStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	modes, err := s.gameRepo.PlayerModeStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.PlayerStats{
		UserID:        user.ID,
		TotalGames:    user.TotalGames,
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		Modes:         modes,
	}, nil
}
