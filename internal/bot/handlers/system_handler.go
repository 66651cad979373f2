package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lorobot/lorobot/internal/session"
)

// NewSystemHandler returns a handler for the /system command: with an
// argument it replaces the system message, without one it reports the
// current value.
func NewSystemHandler(deps HandlerDeps) bot.HandlerFunc {
	return systemHandler{deps}.Handle
}

type systemHandler struct {
	deps HandlerDeps
}

// CommandArgument strips the leading /command token (including an optional
// @botname suffix) from a message and returns the trimmed remainder.
func CommandArgument(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if idx := strings.IndexAny(text, " \t\n"); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return ""
}

func (h systemHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "system")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "System handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	argument := CommandArgument(update.Message.Text)

	var reply string
	if argument == "" {
		// Query: report the current value, never mutate.
		current := h.deps.Session.SystemMessage()
		reply = fmt.Sprintf(h.deps.Config.Messages.SystemCurrent, current)
		log.InfoContext(ctx, "Reporting current system message", "chat_id", chatID)
	} else {
		updated := h.deps.Session.SetSystemMessage(argument)
		reply = fmt.Sprintf(h.deps.Config.Messages.SystemUpdated, updated)
		log.InfoContext(ctx, "System message updated", "chat_id", chatID, "user_id", update.Message.From.ID)

		SaveAuditRecord(ctx, h.deps, chatID, update.Message.From.ID, session.RoleSystem, updated)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send system message reply", "error", err, "chat_id", chatID)
	}
}
