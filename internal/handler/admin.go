package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/repository"
	"minesweeper-bot/internal/service"
)

const suspiciousListLimit = 20

const adminHelpText = `<b>👑 Admin Panel</b>

<b>Superadmin Commands:</b>
/admin add <code>&lt;user_id&gt;</code> — Add admin
/admin remove <code>&lt;user_id&gt;</code> — Remove admin
/admin list — List all admins

<b>Admin Commands:</b>
/stats — Bot statistics
/userstats <code>&lt;user_id&gt;</code> — View user stats
/ban <code>&lt;user_id&gt;</code> — Ban user
/unban <code>&lt;user_id&gt;</code> — Unban user
/suspicious — List suspicious users
/resetstats <code>&lt;user_id&gt;</code> — Reset user stats`

// AdminHandler handles moderation and bot administration commands.
type AdminHandler struct {
	cfg          *config.Config
	adminService *service.AdminService
	statsService *service.StatsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, adminService *service.AdminService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{
		cfg:          cfg,
		adminService: adminService,
		statsService: statsService,
	}
}

// HandleAdmin handles the /admin command and its add/remove/list
// subcommands. Superadmin only.
func (h *AdminHandler) HandleAdmin(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Reply(adminHelpText, tele.ModeHTML)
	}

	switch strings.ToLower(args[0]) {
	case "add":
		return h.handleAdminAdd(c, args[1:])
	case "remove":
		return h.handleAdminRemove(c, args[1:])
	case "list":
		return h.handleAdminList(c)
	default:
		return c.Reply(fmt.Sprintf("❓ Unknown subcommand: %s", args[0]))
	}
}

func (h *AdminHandler) handleAdminAdd(c tele.Context, args []string) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(args, "Usage: /admin add <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	user, err := h.adminService.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found. They must use the bot first.")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	if err := h.adminService.Promote(ctx, targetID); err != nil {
		return c.Reply("❌ Operation failed, please try again later.")
	}

	h.logAdminOp(c, targetID, "admin_add")
	return c.Reply(fmt.Sprintf("✅ User <code>%d</code> (%s) is now an admin!", targetID, user.FirstName), tele.ModeHTML)
}

func (h *AdminHandler) handleAdminRemove(c tele.Context, args []string) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(args, "Usage: /admin remove <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	if err := h.adminService.Demote(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	h.logAdminOp(c, targetID, "admin_remove")
	return c.Reply(fmt.Sprintf("✅ User <code>%d</code> is no longer an admin.", targetID), tele.ModeHTML)
}

func (h *AdminHandler) handleAdminList(c tele.Context) error {
	admins, err := h.adminService.Admins(context.Background())
	if err != nil {
		return c.Reply("❌ Operation failed, please try again later.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>👑 Superadmin:</b> <code>%d</code>\n\n", h.cfg.Bot.SuperadminID)
	if len(admins) == 0 {
		sb.WriteString("<i>No additional admins</i>")
	} else {
		sb.WriteString("<b>👮 Admins:</b>\n")
		for _, admin := range admins {
			fmt.Fprintf(&sb, "• %s (<code>%d</code>)\n", admin.FirstName, admin.ID)
		}
	}

	return c.Reply(strings.TrimRight(sb.String(), "\n"), tele.ModeHTML)
}

// HandleStats handles the /stats command.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	stats, err := h.adminService.BotStats(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load statistics, please try again later.")
	}

	return c.Reply(fmt.Sprintf(
		"<b>📊 Bot Statistics</b>\n\n"+
			"👥 Total Users: <b>%d</b>\n"+
			"🎮 Total Games: <b>%d</b>\n"+
			"🏆 Total Wins: <b>%d</b>\n"+
			"⚠️ Suspicious Users: <b>%d</b>\n"+
			"🚫 Blocked Users: <b>%d</b>",
		stats.Users, stats.Games, stats.Wins, stats.Suspicious, stats.Blocked,
	), tele.ModeHTML)
}

// HandleUserStats handles the /userstats command.
func (h *AdminHandler) HandleUserStats(c tele.Context) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(c.Args(), "Usage: /userstats <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	user, err := h.adminService.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	stats, err := h.statsService.PlayerStats(ctx, targetID)
	if err != nil {
		return c.Reply("❌ Operation failed, please try again later.")
	}

	var sb strings.Builder
	sb.WriteString("<b>👤 User Stats</b>\n\n")
	fmt.Fprintf(&sb, "<b>ID:</b> <code>%d</code>\n", user.ID)
	fmt.Fprintf(&sb, "<b>Name:</b> %s\n", displayName(user))
	fmt.Fprintf(&sb, "<b>Username:</b> @%s\n", stringOrDash(user.Username))
	fmt.Fprintf(&sb, "<b>Flags:</b> %s\n\n", userFlags(user))
	fmt.Fprintf(&sb, "<b>Game Stats:</b>\n")
	fmt.Fprintf(&sb, "🎮 Total Games: %d\n", stats.TotalGames)
	fmt.Fprintf(&sb, "🔥 Current Streak: %d\n", stats.CurrentStreak)
	fmt.Fprintf(&sb, "🏆 Best Streak: %d\n\n", stats.BestStreak)
	sb.WriteString(modeStatsLines(stats))

	return c.Reply(sb.String(), tele.ModeHTML)
}

// HandleBan handles the /ban command.
func (h *AdminHandler) HandleBan(c tele.Context) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(c.Args(), "Usage: /ban <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	if targetID == h.cfg.Bot.SuperadminID {
		return c.Reply("❌ Cannot ban superadmin")
	}

	if err := h.adminService.Ban(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	h.logAdminOp(c, targetID, "ban")
	return c.Reply(fmt.Sprintf("🚫 User <code>%d</code> has been banned.", targetID), tele.ModeHTML)
}

// HandleUnban handles the /unban command.
func (h *AdminHandler) HandleUnban(c tele.Context) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(c.Args(), "Usage: /unban <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	if err := h.adminService.Unban(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	h.logAdminOp(c, targetID, "unban")
	return c.Reply(fmt.Sprintf("✅ User <code>%d</code> has been unbanned.", targetID), tele.ModeHTML)
}

// HandleSuspicious handles the /suspicious command.
func (h *AdminHandler) HandleSuspicious(c tele.Context) error {
	users, err := h.adminService.Suspicious(context.Background(), suspiciousListLimit)
	if err != nil {
		return c.Reply("❌ Operation failed, please try again later.")
	}

	if len(users) == 0 {
		return c.Reply("✅ No suspicious users!")
	}

	var sb strings.Builder
	sb.WriteString("<b>⚠️ Suspicious Users</b>\n\n")
	for _, user := range users {
		fmt.Fprintf(&sb, "• %s (<code>%d</code>)\n", user.FirstName, user.ID)
	}

	return c.Reply(strings.TrimRight(sb.String(), "\n"), tele.ModeHTML)
}

// HandleResetStats handles the /resetstats command.
func (h *AdminHandler) HandleResetStats(c tele.Context) error {
	ctx := context.Background()
	targetID, err := parseUserIDArg(c.Args(), "Usage: /resetstats <user_id>")
	if err != nil {
		return c.Reply(err.Error())
	}

	if err := h.adminService.ResetStats(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed, please try again later.")
	}

	h.logAdminOp(c, targetID, "resetstats")
	return c.Reply(fmt.Sprintf("✅ Stats reset for user <code>%d</code>", targetID), tele.ModeHTML)
}

func (h *AdminHandler) logAdminOp(c tele.Context, targetID int64, op string) {
	adminID := int64(0)
	if sender := c.Sender(); sender != nil {
		adminID = sender.ID
	}
	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", targetID).
		Str("operation", op).
		Msg("Admin operation executed")
}

func parseUserIDArg(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errors.New("❌ Invalid user ID")
	}
	return id, nil
}

func displayName(u *model.User) string {
	name := u.FirstName
	if u.LastName != nil && *u.LastName != "" {
		name += " " + *u.LastName
	}
	return name
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "—"
	}
	return *s
}

func userFlags(u *model.User) string {
	var flags []string
	if u.IsSuperadmin {
		flags = append(flags, "👑 Superadmin")
	}
	if u.IsAdmin {
		flags = append(flags, "👮 Admin")
	}
	if u.IsSuspicious {
		flags = append(flags, "⚠️ Suspicious")
	}
	if u.IsBlocked {
		flags = append(flags, "🚫 Blocked")
	}
	if len(flags) == 0 {
		return "None"
	}
	return strings.Join(flags, ", ")
}

func modeStatsLines(stats *model.PlayerStats) string {
	var sb strings.Builder
	sb.WriteString("<b>Mode Stats:</b>\n")
	for _, mode := range game.PresetModes() {
		m := stats.Modes[mode]
		fmt.Fprintf(&sb, "  %s: %d wins, best %s\n", titleCase(mode), m.Wins, formatBestTime(m.BestTime))
	}
	return strings.TrimRight(sb.String(), "\n")
}
