package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lorobot/lorobot/internal/config"
	"github.com/lorobot/lorobot/internal/session"
)

const testChatID = 77

// stubCompleter is a scriptable completion client: it records every request
// and returns the configured response or error.
type stubCompleter struct {
	mu       sync.Mutex
	err      error
	response string
	requests [][]session.Turn
}

func (s *stubCompleter) Complete(_ context.Context, turns []session.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, turns)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubCompleter) set(response string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.response = response
	s.err = err
}

func (s *stubCompleter) recorded() [][]session.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]session.Turn(nil), s.requests...)
}

// fakeTelegram records the text of every sendMessage call made against the
// fake API server.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTelegram) record(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
}

func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestTelegramBot(t *testing.T, fake *fakeTelegram) *tgbot.Bot {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		w.Header().Set("Content-Type", "application/json")

		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			text := r.FormValue("text")
			if text == "" {
				var params struct {
					Text string `json:"text"`
				}
				_ = json.Unmarshal(body, &params)
				text = params.Text
			}
			fake.record(text)
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1,"chat":{"id":77}}}`))
			return
		}

		// sendChatAction and anything else just succeeds.
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(srv.Close)

	b, err := tgbot.New("12345:test-token", tgbot.WithServerURL(srv.URL), tgbot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("creating bot against fake API: %v", err)
	}
	return b
}

func newTestDeps(stub *stubCompleter) HandlerDeps {
	cfg := &config.Config{}
	cfg.AI.Timeout = 5 * time.Second
	cfg.Messages.GeneralError = "An error occurred while processing your message."
	cfg.Messages.Timeout = "The request timed out."
	cfg.Messages.EmptyResponse = "I couldn't come up with a response."

	manager := session.NewManager("You are a helpful assistant.")
	return HandlerDeps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:    cfg,
		AIClient:  stub,
		Session:   manager,
		Histories: session.NewHistories(manager, session.DefaultTokenCap),
	}
}

func chatUpdate(id int64, text string) *models.Update {
	return &models.Update{
		ID: id,
		Message: &models.Message{
			ID:   int(id),
			Text: text,
			Chat: models.Chat{ID: testChatID},
			From: &models.User{ID: 5},
		},
	}
}

func TestChatHandlerTimeoutRecovery(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	fake := &fakeTelegram{}
	deps := newTestDeps(stub)
	b := newTestTelegramBot(t, fake)
	handler := NewChatHandler(deps)
	ctx := context.Background()

	// Upstream times out: the user must still get a visible reply.
	stub.set("", context.DeadlineExceeded)
	handler(ctx, b, chatUpdate(1, "Hello"))

	sent := fake.texts()
	if len(sent) != 1 {
		t.Fatalf("got %d replies after timeout, want 1", len(sent))
	}
	if sent[0] != deps.Config.Messages.Timeout {
		t.Errorf("timeout reply = %q, want %q", sent[0], deps.Config.Messages.Timeout)
	}
	if n := deps.Histories.Get(testChatID).Len(); n != 0 {
		t.Errorf("failed exchange entered history: %d turns stored", n)
	}

	// The next message is served normally.
	stub.set("Arr, ahoy!", nil)
	handler(ctx, b, chatUpdate(2, "Still there?"))

	sent = fake.texts()
	if len(sent) != 2 {
		t.Fatalf("got %d replies total, want 2", len(sent))
	}
	if sent[1] != "Arr, ahoy!" {
		t.Errorf("recovery reply = %q, want %q", sent[1], "Arr, ahoy!")
	}
	if n := deps.Histories.Get(testChatID).Len(); n != 2 {
		t.Errorf("history has %d turns after successful exchange, want 2", n)
	}

	// The failed exchange must not appear in the follow-up request either.
	requests := stub.recorded()
	if len(requests) != 2 {
		t.Fatalf("completion called %d times, want 2", len(requests))
	}
	second := requests[1]
	if len(second) != 2 {
		t.Fatalf("follow-up request carried %d turns, want 2 (system, user)", len(second))
	}
	if second[0].Role != session.RoleSystem {
		t.Errorf("first turn role = %q, want %q", second[0].Role, session.RoleSystem)
	}
	if second[1].Role != session.RoleUser || second[1].Content != "Still there?" {
		t.Errorf("second turn = %+v, want the new user message only", second[1])
	}
}

func TestChatHandlerUpstreamErrorReply(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	fake := &fakeTelegram{}
	deps := newTestDeps(stub)
	b := newTestTelegramBot(t, fake)
	handler := NewChatHandler(deps)

	stub.set("", errors.New("upstream exploded"))
	handler(context.Background(), b, chatUpdate(1, "Hello"))

	sent := fake.texts()
	if len(sent) != 1 {
		t.Fatalf("got %d replies, want 1", len(sent))
	}
	if sent[0] != deps.Config.Messages.GeneralError {
		t.Errorf("error reply = %q, want %q", sent[0], deps.Config.Messages.GeneralError)
	}
	if n := deps.Histories.Get(testChatID).Len(); n != 0 {
		t.Errorf("failed exchange entered history: %d turns stored", n)
	}
}

func TestChatHandlerIgnoresCommands(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	fake := &fakeTelegram{}
	deps := newTestDeps(stub)
	b := newTestTelegramBot(t, fake)
	handler := NewChatHandler(deps)

	handler(context.Background(), b, chatUpdate(1, "/unknown"))

	if sent := fake.texts(); len(sent) != 0 {
		t.Errorf("command-like message produced %d replies, want 0", len(sent))
	}
	if requests := stub.recorded(); len(requests) != 0 {
		t.Errorf("command-like message reached the completion client %d times", len(requests))
	}
}
