package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store is the data access layer for the audit log. All methods accept a
// context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage appends one record to the audit log.
	SaveMessage(ctx context.Context, message *Message) error

	// RecentMessages returns up to limit records for a chat, newest first.
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]*Message, error)

	// DeleteChatMessages removes all records for a chat.
	DeleteChatMessages(ctx context.Context, chatID int64) error

	// RunMaintenance reclaims space and refreshes planner statistics.
	RunMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.ChatID == 0 {
		return fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.Content == "" {
		return fmt.Errorf("message must have non-empty content")
	}

	message.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO messages (chat_id, user_id, role, content, created_at)
        VALUES (:chat_id, :user_id, :role, :content, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "chat_id", message.ChatID, "error", err)
		return fmt.Errorf("failed to save message (chat %d): %w", message.ChatID, err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		message.ID = uint(id)
	}
	return nil
}

func (s *sqlxStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var messages []*Message
	query := `
        SELECT id, created_at, chat_id, user_id, role, content
        FROM messages
        WHERE chat_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent messages (chat %d): %w", chatID, err)
	}
	return messages, nil
}

func (s *sqlxStore) DeleteChatMessages(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?;`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete messages (chat %d): %w", chatID, err)
	}

	if n, err := result.RowsAffected(); err == nil {
		s.logger.DebugContext(ctx, "Deleted chat messages", "chat_id", chatID, "count", n)
	}
	return nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	for _, stmt := range []string{"VACUUM;", "ANALYZE;"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("maintenance statement %q failed: %w", stmt, err)
		}
	}
	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
