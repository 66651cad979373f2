// Package ai provides the completion service client used to generate
// replies, with interchangeable OpenAI-compatible and Gemini backends.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lorobot/lorobot/internal/config"
	"github.com/lorobot/lorobot/internal/session"
)

// ErrEmptyCompletion is returned when the service answers successfully but
// produces no usable text.
var ErrEmptyCompletion = errors.New("completion service returned empty response")

// Client generates a single completion for an ordered sequence of turns.
// Implementations make exactly one attempt per call; a failed call surfaces
// to the caller as an error.
type Client interface {
	Complete(ctx context.Context, turns []session.Turn) (string, error)
}

// New selects a Client implementation based on the configured provider.
func New(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("Initializing completion client", "provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return newOpenAIClient(cfg, log)
	case "gemini":
		return newGeminiClient(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown completion provider: %q", cfg.Provider)
	}
}
