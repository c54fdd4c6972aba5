package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tinyland-inc/anonchat/pkg/config"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

// Claude answers AI-mode messages through the Anthropic Messages API,
// keeping a short rolling history per user.
type Claude struct {
	client    *anthropic.Client
	model     string
	maxTokens int64

	mu      sync.Mutex
	history map[string][]anthropic.MessageParam
}

func NewClaude(cfg config.AnthropicConfig) *Claude {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(normalizeBaseURL(cfg.APIBase, anthropicDefaultBaseURL)),
	)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Claude{
		client:    &client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		history:   make(map[string][]anthropic.MessageParam),
	}
}

func (c *Claude) Respond(ctx context.Context, userID, text string) (string, error) {
	c.mu.Lock()
	messages := append(c.snapshotLocked(userID), anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	c.mu.Unlock()

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	reply := sb.String()

	c.mu.Lock()
	c.history[userID] = trimHistory(append(messages,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply))))
	c.mu.Unlock()

	return reply, nil
}

// Forget drops a user's conversation history, e.g. when they leave AI mode.
func (c *Claude) Forget(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, userID)
}

func (c *Claude) snapshotLocked(userID string) []anthropic.MessageParam {
	h := c.history[userID]
	out := make([]anthropic.MessageParam, len(h))
	copy(out, h)
	return out
}

func trimHistory(h []anthropic.MessageParam) []anthropic.MessageParam {
	if len(h) <= maxHistoryEntries {
		return h
	}
	return h[len(h)-maxHistoryEntries:]
}

func normalizeBaseURL(apiBase, fallback string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return fallback
	}

	base = strings.TrimRight(base, "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	if base == "" {
		return fallback
	}

	return base
}
