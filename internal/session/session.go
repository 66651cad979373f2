// Package session holds the bot's conversation state: the process-wide
// system message register and the per-chat conversation history.
package session

import (
	"strings"
	"sync"
)

// Roles used in completion requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single role-tagged entry in a completion request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Manager guards the system message register. Handlers may run concurrently
// for distinct updates, so reads and writes are serialized with a RWMutex.
type Manager struct {
	mu            sync.RWMutex
	systemMessage string
}

// NewManager creates a Manager initialized with the given default system
// message. The default is stored trimmed of surrounding whitespace.
func NewManager(defaultSystemMessage string) *Manager {
	return &Manager{systemMessage: strings.TrimSpace(defaultSystemMessage)}
}

// SystemMessage returns the current system message.
func (m *Manager) SystemMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systemMessage
}

// SetSystemMessage replaces the register with text trimmed of surrounding
// whitespace and returns the stored value. Empty or whitespace-only input is
// a query, not an update: the register is left unchanged and the current
// value is returned.
func (m *Manager) SetSystemMessage(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return m.SystemMessage()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemMessage = trimmed
	return m.systemMessage
}

// BuildRequest composes the ordered turn sequence for a single user message:
// the current system message first, then the user text. It never mutates the
// register.
func (m *Manager) BuildRequest(userText string) []Turn {
	return []Turn{
		{Role: RoleSystem, Content: m.SystemMessage()},
		{Role: RoleUser, Content: userText},
	}
}
