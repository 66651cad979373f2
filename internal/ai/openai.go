package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lorobot/lorobot/internal/config"
	"github.com/lorobot/lorobot/internal/session"
)

// openAIClient talks to the OpenAI chat completions API, or any service
// exposing the same surface via a custom base URL.
type openAIClient struct {
	client      *openai.Client
	log         *slog.Logger
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

func newOpenAIClient(cfg config.AIConfig, log *slog.Logger) (*openAIClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("openai API token is required")
	}

	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		log:         log.With("component", "openai_client"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func toOpenAIRole(role string) string {
	switch role {
	case session.RoleSystem:
		return openai.ChatMessageRoleSystem
	case session.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// Complete sends the turns as a chat completion request and returns the
// first choice's text. The caller's context bounds the call.
func (c *openAIClient) Complete(ctx context.Context, turns []session.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("no turns provided for completion")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(t.Role),
			Content: t.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI completion failed", "error", err, "duration", time.Since(start))
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.log.WarnContext(ctx, "OpenAI returned no choices or empty content", "model", resp.Model)
		return "", ErrEmptyCompletion
	}

	c.log.DebugContext(ctx, "OpenAI completion succeeded",
		"duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
