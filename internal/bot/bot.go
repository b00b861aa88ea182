package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/handler"
	"minesweeper-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot          *tele.Bot
	cfg          *config.Config
	adminService *service.AdminService

	playerHandler      *handler.PlayerHandler
	leaderboardHandler *handler.LeaderboardHandler
	adminHandler       *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config       *config.Config
	StatsService *service.StatsService
	AdminService *service.AdminService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		adminService: deps.AdminService,
	}

	b.playerHandler = handler.NewPlayerHandler(deps.Config, deps.StatsService)
	b.leaderboardHandler = handler.NewLeaderboardHandler(deps.StatsService)
	b.adminHandler = handler.NewAdminHandler(deps.Config, deps.AdminService, deps.StatsService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Player commands
	b.bot.Handle("/start", b.playerHandler.HandleStart)
	b.bot.Handle("/play", b.playerHandler.HandlePlay)
	b.bot.Handle("/profile", b.playerHandler.HandleProfile)
	b.bot.Handle("/leaderboard", b.leaderboardHandler.HandleLeaderboard)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg, b.adminService))
	adminGroup.Handle("/stats", b.adminHandler.HandleStats)
	adminGroup.Handle("/userstats", b.adminHandler.HandleUserStats)
	adminGroup.Handle("/ban", b.adminHandler.HandleBan)
	adminGroup.Handle("/unban", b.adminHandler.HandleUnban)
	adminGroup.Handle("/suspicious", b.adminHandler.HandleSuspicious)
	adminGroup.Handle("/resetstats", b.adminHandler.HandleResetStats)

	// Superadmin commands
	superGroup := b.bot.Group()
	superGroup.Use(SuperadminMiddleware(b.cfg))
	superGroup.Handle("/admin", b.adminHandler.HandleAdmin)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline button callbacks.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if data == handler.CallbackRefreshLeaderboard {
		return b.leaderboardHandler.HandleRefreshCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unhandled callback")
	return c.Respond()
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
