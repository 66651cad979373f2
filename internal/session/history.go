package session

import (
	"sync"
	"unicode/utf8"
)

// estimateTokens approximates the token cost of a turn. Roughly four
// characters per token for chat-style text, plus a small per-message
// overhead for the role framing.
const (
	charsPerToken   = 4
	perTurnOverhead = 4
	minimumTurnCost = 1
	DefaultTokenCap = 4096
)

func estimateTokens(t Turn) int {
	n := utf8.RuneCountInString(t.Content)/charsPerToken + perTurnOverhead
	if n < minimumTurnCost {
		return minimumTurnCost
	}
	return n
}

// History keeps an ordered window of conversation turns for a single chat,
// pruned from the oldest end once the estimated token count exceeds the
// budget. The budget always reserves room for the current system message so
// a serialized request stays within the model's context window.
type History struct {
	mu      sync.Mutex
	manager *Manager
	limit   int
	turns   []Turn
	tokens  int
}

// NewHistory creates a history bound to the given manager's system message
// register with the given token budget. A non-positive limit falls back to
// DefaultTokenCap.
func NewHistory(manager *Manager, limit int) *History {
	if limit <= 0 {
		limit = DefaultTokenCap
	}
	return &History{manager: manager, limit: limit}
}

// Add appends a turn and prunes the oldest entries if the budget is
// exceeded.
func (h *History) Add(role, content string) {
	t := Turn{Role: role, Content: content}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
	h.tokens += estimateTokens(t)
	h.pruneLocked()
}

// Len reports the number of stored turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Reset discards all stored turns.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	h.tokens = 0
}

// Serialize returns the full request sequence: the current system message
// first, then the stored turns in order. The returned slice is a copy.
func (h *History) Serialize() []Turn {
	system := Turn{Role: RoleSystem, Content: h.manager.SystemMessage()}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, 0, len(h.turns)+1)
	out = append(out, system)
	out = append(out, h.turns...)
	return out
}

// pruneLocked drops turns from the front until the estimated token count,
// including the system message's own cost, fits the budget. Callers must
// hold h.mu.
func (h *History) pruneLocked() {
	budget := h.limit - estimateTokens(Turn{Role: RoleSystem, Content: h.manager.SystemMessage()})
	for len(h.turns) > 0 && h.tokens > budget {
		h.tokens -= estimateTokens(h.turns[0])
		h.turns = h.turns[1:]
	}
}

// Histories tracks one History per chat. Access is keyed by chat ID; the
// zero limit rules of NewHistory apply.
type Histories struct {
	mu      sync.Mutex
	manager *Manager
	limit   int
	byChat  map[int64]*History
}

// NewHistories creates the per-chat history table.
func NewHistories(manager *Manager, limit int) *Histories {
	return &Histories{
		manager: manager,
		limit:   limit,
		byChat:  make(map[int64]*History),
	}
}

// Get returns the history for a chat, creating it on first use.
func (hs *Histories) Get(chatID int64) *History {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	h, ok := hs.byChat[chatID]
	if !ok {
		h = NewHistory(hs.manager, hs.limit)
		hs.byChat[chatID] = h
	}
	return h
}

// Reset clears the history for a chat, if any exists.
func (hs *Histories) Reset(chatID int64) {
	hs.mu.Lock()
	h := hs.byChat[chatID]
	hs.mu.Unlock()
	if h != nil {
		h.Reset()
	}
}
