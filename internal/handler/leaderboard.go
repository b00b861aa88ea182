package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/service"
)

// CallbackRefreshLeaderboard is the callback data for the refresh button.
const CallbackRefreshLeaderboard = "refresh_leaderboard"

var leaderboardMedals = []string{"🥇", "🥈", "🥉", "4.", "5."}

// LeaderboardHandler handles the in-chat leaderboard view.
type LeaderboardHandler struct {
	statsService *service.StatsService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(statsService *service.StatsService) *LeaderboardHandler {
	return &LeaderboardHandler{statsService: statsService}
}

func refreshMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "🔄 Refresh", Data: CallbackRefreshLeaderboard},
		}},
	}
}

// HandleLeaderboard handles the /leaderboard command.
func (h *LeaderboardHandler) HandleLeaderboard(c tele.Context) error {
	text, err := h.leaderboardText(context.Background())
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard, please try again later.")
	}
	if text == "" {
		return c.Reply("No games played yet! Be the first to set a record.")
	}

	return c.Reply(text, refreshMarkup(), tele.ModeHTML)
}

// HandleRefreshCallback handles the refresh button under the leaderboard
// message, editing it in place.
func (h *LeaderboardHandler) HandleRefreshCallback(c tele.Context) error {
	text, err := h.leaderboardText(context.Background())
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Failed to refresh"})
	}
	if text == "" {
		return c.Respond(&tele.CallbackResponse{Text: "No data yet!"})
	}

	if err := c.Edit(text, refreshMarkup(), tele.ModeHTML); err != nil {
		// Telegram rejects edits that change nothing; the view is current.
		return c.Respond(&tele.CallbackResponse{Text: "Refreshed! ✅"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Refreshed! ✅"})
}

// leaderboardText renders the per-mode top players. Returns "" when no
// mode has any recorded win.
func (h *LeaderboardHandler) leaderboardText(ctx context.Context) (string, error) {
	boards, err := h.statsService.CompactLeaderboard(ctx, game.PresetModes())
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("<b>🏆 Leaderboard</b>\n")

	empty := true
	for _, mode := range game.PresetModes() {
		entries := boards[mode]
		if len(entries) == 0 {
			continue
		}
		empty = false

		fmt.Fprintf(&sb, "\n%s <b>%s</b>\n", modeEmoji[mode], titleCase(mode))
		for i, e := range entries {
			medal := fmt.Sprintf("%d.", i+1)
			if i < len(leaderboardMedals) {
				medal = leaderboardMedals[i]
			}
			fmt.Fprintf(&sb, "%s %s — %ds\n", medal, e.Name, e.BestTime)
		}
	}

	if empty {
		return "", nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
