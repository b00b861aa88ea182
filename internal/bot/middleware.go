// Package bot provides the Telegram bot initialization, middleware and
// handler registration.
package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minesweeper-bot/internal/config"
	"minesweeper-bot/internal/repository"
	"minesweeper-bot/internal/service"
)

// LoggingMiddleware logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					_ = c.Reply("❌ Internal error, please try again later.")
				}
			}()
			return next(c)
		}
	}
}

// AdminMiddleware restricts a handler group to the superadmin and users
// carrying the admin flag. Non-admin attempts are ignored silently so the
// command set stays undiscoverable.
func AdminMiddleware(cfg *config.Config, adminService *service.AdminService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if sender.ID == cfg.Bot.SuperadminID {
				return next(c)
			}

			user, err := adminService.GetUser(context.Background(), sender.ID)
			if err != nil {
				if !errors.Is(err, repository.ErrUserNotFound) {
					log.Error().Err(err).Int64("user_id", sender.ID).Msg("Admin check failed")
				}
				return nil
			}
			if !user.IsAdmin {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return nil
			}

			return next(c)
		}
	}
}

// SuperadminMiddleware restricts a handler group to the configured
// superadmin only.
func SuperadminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.ID != cfg.Bot.SuperadminID {
				return nil
			}
			return next(c)
		}
	}
}
