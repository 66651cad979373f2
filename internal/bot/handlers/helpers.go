package handlers

import (
	"context"
	"time"

	"github.com/lorobot/lorobot/internal/database"
)

const auditSaveTimeout = 5 * time.Second

// SaveAuditRecord appends one record to the relay audit log. Storage
// problems are logged and swallowed: the audit log must never break
// message handling.
func SaveAuditRecord(ctx context.Context, deps HandlerDeps, chatID, userID int64, role, content string) {
	if deps.Store == nil || content == "" {
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, auditSaveTimeout)
	defer cancel()

	record := &database.Message{
		ChatID:  chatID,
		UserID:  userID,
		Role:    role,
		Content: content,
	}
	if err := deps.Store.SaveMessage(dbCtx, record); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to save audit record", "error", err, "chat_id", chatID, "role", role)
	}
}
