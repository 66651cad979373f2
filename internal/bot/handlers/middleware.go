package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AllowedUsers creates a middleware that rejects messages from users outside
// the configured allowed list. An empty list admits everyone; the admin is
// always admitted. Rejected users get the configured rejection reply.
func AllowedUsers(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			if deps.Config.IsUserAllowed(userID) {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "allowed_users")
			log.WarnContext(ctx, "Rejected message from unlisted user", "user_id", userID, "chat_id", chatID)

			if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.NotAuthorized,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send rejection message", "error", err, "chat_id", chatID)
			}
		}
	}
}

// AdminOnly creates a middleware that limits a command to the configured
// admin user.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			if deps.Config.Telegram.AdminID != 0 && userID == deps.Config.Telegram.AdminID {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "admin_only")
			log.WarnContext(ctx, "Unauthorized admin command attempt", "user_id", userID, "chat_id", chatID)

			if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.NotAuthorized,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
			}
		}
	}
}
