// Package ai implements the automated responder users talk to in AI mode.
// It is an external collaborator from the relay's point of view: fallible,
// text-only, addressed per user.
package ai

import (
	"errors"

	"github.com/tinyland-inc/anonchat/pkg/config"
	"github.com/tinyland-inc/anonchat/pkg/relay"
)

// ErrNoProvider is returned when no responder provider is configured.
var ErrNoProvider = errors.New("no AI provider configured")

const systemPrompt = "You are a friendly companion inside an anonymous chat service. " +
	"Keep replies short and conversational. Never ask for, guess at, or reveal " +
	"anyone's identity or personal details."

// maxHistoryEntries bounds the per-user rolling conversation window.
const maxHistoryEntries = 40

// NewResponder picks a provider from config: Anthropic when its key is set,
// otherwise OpenAI.
func NewResponder(cfg config.ProvidersConfig) (relay.Responder, error) {
	if cfg.Anthropic.APIKey != "" {
		return NewClaude(cfg.Anthropic), nil
	}
	if cfg.OpenAI.APIKey != "" {
		return NewOpenAI(cfg.OpenAI), nil
	}
	return nil, ErrNoProvider
}
