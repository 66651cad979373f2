package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/lorobot/lorobot/internal/config"
	"github.com/lorobot/lorobot/internal/session"
)

// geminiClient talks to Google's Gemini API. System turns become the
// request's system instruction; user and assistant turns map to user and
// model contents.
type geminiClient struct {
	client *genai.Client
	log    *slog.Logger
	model  string
	base   *genai.GenerateContentConfig
}

func newGeminiClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (*geminiClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Token,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	topP := cfg.TopP
	base := &genai.GenerateContentConfig{
		Temperature: &temperature,
		TopP:        &topP,
	}

	return &geminiClient{
		client: gc,
		log:    log.With("component", "gemini_client"),
		model:  cfg.Model,
		base:   base,
	}, nil
}

// Complete sends the turns as a generate-content request and returns the
// response text.
func (c *geminiClient) Complete(ctx context.Context, turns []session.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("no turns provided for completion")
	}

	var systemParts []string
	var contents []*genai.Content
	for _, t := range turns {
		switch t.Role {
		case session.RoleSystem:
			systemParts = append(systemParts, t.Content)
		case session.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}

	reqCfg := *c.base
	if len(systemParts) > 0 {
		reqCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &reqCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini completion failed", "error", err)
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	return c.extractText(ctx, resp)
}

func (c *geminiClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("gemini request blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing content", "finish_reason", finishReason)
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
