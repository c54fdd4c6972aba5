package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tinyland-inc/anonchat/pkg/config"
)

// OpenAI answers AI-mode messages through the Chat Completions API.
type OpenAI struct {
	client openai.Client
	model  string

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessageParamUnion
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBase))
	}

	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		history: make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

func (o *OpenAI) Respond(ctx context.Context, userID, text string) (string, error) {
	o.mu.Lock()
	messages := append(o.snapshotLocked(userID), openai.UserMessage(text))
	o.mu.Unlock()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}, messages...),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai API call: empty response")
	}
	reply := resp.Choices[0].Message.Content

	o.mu.Lock()
	h := append(messages, openai.AssistantMessage(reply))
	if len(h) > maxHistoryEntries {
		h = h[len(h)-maxHistoryEntries:]
	}
	o.history[userID] = h
	o.mu.Unlock()

	return reply, nil
}

// Forget drops a user's conversation history.
func (o *OpenAI) Forget(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.history, userID)
}

func (o *OpenAI) snapshotLocked(userID string) []openai.ChatCompletionMessageParamUnion {
	h := o.history[userID]
	out := make([]openai.ChatCompletionMessageParamUnion, len(h))
	copy(out, h)
	return out
}
