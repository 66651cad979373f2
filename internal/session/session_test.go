package session_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/lorobot/lorobot/internal/session"
)

const defaultInstruction = "You are a helpful assistant."

func TestSetSystemMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple replacement",
			input:    "You are a pirate.",
			expected: "You are a pirate.",
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  \t You are a pirate. \n ",
			expected: "You are a pirate.",
		},
		{
			name:     "empty input is a query",
			input:    "",
			expected: defaultInstruction,
		},
		{
			name:     "whitespace-only input is a query",
			input:    " \t\n ",
			expected: defaultInstruction,
		},
		{
			name:     "multiline message kept intact",
			input:    "You are terse.\nAnswer in one sentence.",
			expected: "You are terse.\nAnswer in one sentence.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := session.NewManager(defaultInstruction)
			got := m.SetSystemMessage(tc.input)
			if got != tc.expected {
				t.Errorf("SetSystemMessage(%q) = %q, want %q", tc.input, got, tc.expected)
			}
			if read := m.SystemMessage(); read != tc.expected {
				t.Errorf("SystemMessage() after set = %q, want %q", read, tc.expected)
			}
		})
	}
}

func TestSetSystemMessageEmptyDoesNotMutate(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	m.SetSystemMessage("You are a pirate.")

	if got := m.SetSystemMessage(""); got != "You are a pirate." {
		t.Errorf("SetSystemMessage(\"\") = %q, want prior value", got)
	}
	if got := m.SystemMessage(); got != "You are a pirate." {
		t.Errorf("SystemMessage() = %q, want unchanged %q", got, "You are a pirate.")
	}
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	m.SetSystemMessage("You are a pirate.")

	turns := m.BuildRequest("Hello")
	if len(turns) != 2 {
		t.Fatalf("BuildRequest returned %d turns, want 2", len(turns))
	}
	if turns[0].Role != session.RoleSystem || turns[0].Content != "You are a pirate." {
		t.Errorf("first turn = %+v, want system turn with current system message", turns[0])
	}
	if turns[1].Role != session.RoleUser || turns[1].Content != "Hello" {
		t.Errorf("second turn = %+v, want user turn with input text", turns[1])
	}
}

func TestBuildRequestUsesDefault(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	turns := m.BuildRequest("hi")
	if turns[0].Content != defaultInstruction {
		t.Errorf("system content = %q, want default %q", turns[0].Content, defaultInstruction)
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.SetSystemMessage("You are a pirate.")
		}()
		go func() {
			defer wg.Done()
			got := m.SystemMessage()
			if got != defaultInstruction && got != "You are a pirate." {
				t.Errorf("observed partial value %q", got)
			}
		}()
	}
	wg.Wait()
}

func TestHistorySerializeOrder(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	h := session.NewHistory(m, 0)

	h.Add(session.RoleUser, "Hello")
	h.Add(session.RoleAssistant, "Ahoy!")

	turns := h.Serialize()
	if len(turns) != 3 {
		t.Fatalf("Serialize returned %d turns, want 3", len(turns))
	}
	if turns[0].Role != session.RoleSystem || turns[0].Content != defaultInstruction {
		t.Errorf("first turn = %+v, want system entry", turns[0])
	}
	if turns[1].Content != "Hello" || turns[2].Content != "Ahoy!" {
		t.Errorf("history order wrong: %+v", turns[1:])
	}
}

func TestHistoryPruning(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	// Tiny budget: only the most recent turns should survive.
	h := session.NewHistory(m, 64)

	for i := 0; i < 20; i++ {
		h.Add(session.RoleUser, strings.Repeat("x", 100))
	}

	if n := h.Len(); n >= 20 {
		t.Errorf("history not pruned: %d turns stored", n)
	}
	if n := h.Len(); n == 0 {
		t.Error("pruning removed every turn")
	}
}

func TestHistoryReset(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)
	hs := session.NewHistories(m, 4096)

	hs.Get(1).Add(session.RoleUser, "Hello")
	hs.Get(2).Add(session.RoleUser, "Oi")

	hs.Reset(1)
	if n := hs.Get(1).Len(); n != 0 {
		t.Errorf("chat 1 history has %d turns after reset, want 0", n)
	}
	if n := hs.Get(2).Len(); n != 1 {
		t.Errorf("chat 2 history has %d turns, want 1 (reset must be per chat)", n)
	}
}

func TestPirateScenario(t *testing.T) {
	t.Parallel()

	m := session.NewManager(defaultInstruction)

	confirmed := m.SetSystemMessage("You are a pirate.")
	if confirmed != "You are a pirate." {
		t.Fatalf("confirmation = %q, want %q", confirmed, "You are a pirate.")
	}

	turns := m.BuildRequest("Hello")
	if turns[0].Content != "You are a pirate." {
		t.Errorf("system content = %q, want %q", turns[0].Content, "You are a pirate.")
	}
	if turns[1].Content != "Hello" {
		t.Errorf("user content = %q, want %q", turns[1].Content, "Hello")
	}

	// Bare /system: query only, no mutation.
	if got := m.SetSystemMessage(""); got != "You are a pirate." {
		t.Errorf("query returned %q, want %q", got, "You are a pirate.")
	}
}
