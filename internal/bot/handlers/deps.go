// Package handlers contains the Telegram command and message handlers,
// their registration logic, and middleware.
package handlers

import (
	"log/slog"

	"github.com/lorobot/lorobot/internal/ai"
	"github.com/lorobot/lorobot/internal/config"
	"github.com/lorobot/lorobot/internal/database"
	"github.com/lorobot/lorobot/internal/session"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	AIClient  ai.Client
	Session   *session.Manager
	Histories *session.Histories
}
