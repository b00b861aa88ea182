// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/repository"
	"minesweeper-bot/internal/service"
)

var modeEmoji = map[string]string{
	game.ModeBeginner:     "🟢",
	game.ModeIntermediate: "🟡",
	game.ModeExpert:       "🔴",
}

// PlayerHandler handles player-facing commands.
type PlayerHandler struct {
	cfg          *config.Config
	statsService *service.StatsService
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(cfg *config.Config, statsService *service.StatsService) *PlayerHandler {
	return &PlayerHandler{
		cfg:          cfg,
		statsService: statsService,
	}
}

// HandleStart handles the /start command.
func (h *PlayerHandler) HandleStart(c tele.Context) error {
	return c.Reply("Hello! Send /play to start the game.")
}

// HandlePlay handles the /play command. Sends a button that opens the
// Minesweeper webapp inside Telegram.
func (h *PlayerHandler) HandlePlay(c tele.Context) error {
	webAppURL := strings.TrimRight(h.cfg.Server.BaseURL, "/") + "/game/index.html"

	markup := &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{
				Text:   "🎮 Play Minesweeper",
				WebApp: &tele.WebApp{URL: webAppURL},
			},
		}},
	}

	return c.Reply(
		"💣 <b>Minesweeper Ready!</b>\n\nClick the button below to launch the game.",
		markup,
		tele.ModeHTML,
	)
}

// HandleProfile handles the /profile command.
func (h *PlayerHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	stats, err := h.statsService.PlayerStats(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("You haven't played any games yet! Send /play to start.")
		}
		return c.Reply("❌ Failed to load your stats, please try again later.")
	}

	return c.Reply(formatPlayerStats("📊 Your Stats", stats), tele.ModeHTML)
}

func formatPlayerStats(title string, stats *model.PlayerStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", title)
	fmt.Fprintf(&sb, "🎮 Total Games: <b>%d</b>\n", stats.TotalGames)
	fmt.Fprintf(&sb, "🔥 Current Streak: <b>%d</b>\n", stats.CurrentStreak)
	fmt.Fprintf(&sb, "🏆 Best Streak: <b>%d</b>\n\n", stats.BestStreak)
	sb.WriteString("<b>Mode Stats:</b>\n")

	for _, mode := range game.PresetModes() {
		m := stats.Modes[mode]
		fmt.Fprintf(&sb, "%s <b>%s</b>: %d wins | Best: %s\n",
			modeEmoji[mode], titleCase(mode), m.Wins, formatBestTime(m.BestTime))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatBestTime(t *int) string {
	if t == nil {
		return "—"
	}
	return fmt.Sprintf("%ds", *t)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
