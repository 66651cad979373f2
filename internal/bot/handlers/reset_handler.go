package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const resetTimeout = 30 * time.Second

// NewResetHandler returns a handler for the /reset command. It clears the
// chat's conversation history and its audit log records. The system message
// register is untouched.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Reset handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Admin requested history reset", "chat_id", chatID, "user_id", update.Message.From.ID)

	h.deps.Histories.Reset(chatID)

	dbCtx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()
	if err := h.deps.Store.DeleteChatMessages(dbCtx, chatID); err != nil {
		// History is already cleared; the stale audit records only affect
		// inspection, so report success for the conversation itself.
		log.ErrorContext(ctx, "Failed to delete audit records", "error", err, "chat_id", chatID)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   h.deps.Config.Messages.HistoryReset,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send reset confirmation", "error", err, "chat_id", chatID)
	}
}
