package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lorobot/lorobot/internal/session"
)

// NewChatHandler returns the default handler: every non-command text
// message is relayed to the completion service and the response is sent
// back verbatim.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update with nil message or sender", "update_id", update.ID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		// Unknown commands and non-text content are not relayed.
		log.DebugContext(ctx, "Ignoring empty or command-like message", "chat_id", msg.Chat.ID)
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID
	log.InfoContext(ctx, "Relaying user message", "chat_id", chatID, "user_id", userID)

	SaveAuditRecord(ctx, deps, chatID, userID, session.RoleUser, text)

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	history := deps.Histories.Get(chatID)

	// First turn of a chat is the documented two-entry request; later turns
	// prepend the accumulated history.
	var turns []session.Turn
	if history.Len() == 0 {
		turns = deps.Session.BuildRequest(text)
	} else {
		turns = append(history.Serialize(), session.Turn{Role: session.RoleUser, Content: text})
	}

	aiCtx, cancel := context.WithTimeout(ctx, deps.Config.AI.Timeout)
	defer cancel()

	response, err := deps.AIClient.Complete(aiCtx, turns)
	if err != nil {
		log.ErrorContext(ctx, "Completion failed", "error", err, "chat_id", chatID)
		h.sendErrorReply(ctx, b, chatID, err)
		return
	}
	if strings.TrimSpace(response) == "" {
		response = deps.Config.Messages.EmptyResponse
	}

	// Only successful exchanges enter the history, so a failed call leaves
	// the conversation state exactly as it was.
	history.Add(session.RoleUser, text)
	history.Add(session.RoleAssistant, response)

	sent, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: response})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
		return
	}
	log.InfoContext(ctx, "Sent reply", "chat_id", chatID, "message_id", sent.ID)

	SaveAuditRecord(ctx, deps, chatID, 0, session.RoleAssistant, response)
}

func (h chatHandler) sendErrorReply(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	log := h.deps.Logger.With("handler", "chat")

	text := h.deps.Config.Messages.GeneralError
	if errors.Is(err, context.DeadlineExceeded) {
		text = h.deps.Config.Messages.Timeout
	}

	if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); sendErr != nil {
		log.ErrorContext(ctx, "Failed to send error reply", "error", sendErr, "chat_id", chatID)
	}
}
