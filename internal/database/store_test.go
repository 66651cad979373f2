package database_test

import (
	"context"
	"testing"

	"github.com/lorobot/lorobot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestSaveAndRecentMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, content := range []string{"Hello", "Ahoy!", "How are you?"} {
		msg := &database.Message{
			ChatID:  100,
			UserID:  int64(i + 1),
			Role:    "user",
			Content: content,
		}
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage(%q) failed: %v", content, err)
		}
		if msg.ID == 0 {
			t.Errorf("SaveMessage(%q) did not backfill the record ID", content)
		}
	}

	msgs, err := store.RecentMessages(ctx, 100, 2)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("RecentMessages returned %d records, want 2", len(msgs))
	}
	// Newest first.
	if msgs[0].Content != "How are you?" || msgs[1].Content != "Ahoy!" {
		t.Errorf("unexpected order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestSaveMessageValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testCases := []struct {
		name string
		msg  *database.Message
	}{
		{name: "nil message", msg: nil},
		{name: "missing chat id", msg: &database.Message{Role: "user", Content: "hi"}},
		{name: "empty content", msg: &database.Message{ChatID: 1, Role: "user"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.SaveMessage(ctx, tc.msg); err == nil {
				t.Error("SaveMessage accepted invalid record")
			}
		})
	}
}

func TestDeleteChatMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, chatID := range []int64{1, 1, 2} {
		msg := &database.Message{ChatID: chatID, UserID: 9, Role: "user", Content: "x"}
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	if err := store.DeleteChatMessages(ctx, 1); err != nil {
		t.Fatalf("DeleteChatMessages failed: %v", err)
	}

	if msgs, _ := store.RecentMessages(ctx, 1, 10); len(msgs) != 0 {
		t.Errorf("chat 1 still has %d records after delete", len(msgs))
	}
	if msgs, _ := store.RecentMessages(ctx, 2, 10); len(msgs) != 1 {
		t.Errorf("chat 2 has %d records, want 1 (delete must be per chat)", len(msgs))
	}
}

func TestRunMaintenance(t *testing.T) {
	store := newTestStore(t)
	if err := store.RunMaintenance(context.Background()); err != nil {
		t.Fatalf("RunMaintenance failed: %v", err)
	}
}
