package service

import (
	"context"

	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/repository"
)

// AdminService handles moderation operations on player flags and stats.
// It only touches trust flags and aggregates; game records are immutable.
type AdminService struct {
	userRepo *repository.UserRepository
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(userRepo *repository.UserRepository) *AdminService {
	return &AdminService{userRepo: userRepo}
}

// GetUser retrieves a user by their Telegram ID.
func (s *AdminService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Ban blocks a user. Their future submissions are rejected at write time.
func (s *AdminService) Ban(ctx context.Context, id int64) error {
	return s.userRepo.SetBlocked(ctx, id, true)
}

// Unban clears a user's blocked flag.
func (s *AdminService) Unban(ctx context.Context, id int64) error {
	return s.userRepo.SetBlocked(ctx, id, false)
}

// Promote grants a user the admin flag.
func (s *AdminService) Promote(ctx context.Context, id int64) error {
	return s.userRepo.SetAdmin(ctx, id, true)
}

// Demote removes a user's admin flag.
func (s *AdminService) Demote(ctx context.Context, id int64) error {
	return s.userRepo.SetAdmin(ctx, id, false)
}

// Admins lists users carrying the admin flag.
func (s *AdminService) Admins(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.ListAdmins(ctx)
}

// Suspicious lists users flagged by the intake heuristic.
func (s *AdminService) Suspicious(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.ListSuspicious(ctx, limit)
}

// ResetStats zeroes a user's aggregates, leaving the record log intact.
func (s *AdminService) ResetStats(ctx context.Context, id int64) error {
	return s.userRepo.ResetStats(ctx, id)
}

// BotStats returns global counters for the /stats command.
func (s *AdminService) BotStats(ctx context.Context) (*model.BotStats, error) {
	return s.userRepo.BotStats(ctx)
}
