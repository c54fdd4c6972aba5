package ai

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/tinyland-inc/anonchat/pkg/config"
	"github.com/tinyland-inc/anonchat/pkg/pairing"
)

// Both providers must expose history teardown for the AI-exit path.
var (
	_ pairing.Forgetter = (*Claude)(nil)
	_ pairing.Forgetter = (*OpenAI)(nil)
)

func TestNewResponder_PrefersAnthropic(t *testing.T) {
	cfg := config.ProvidersConfig{
		Anthropic: config.AnthropicConfig{APIKey: "sk-a", Model: "claude-sonnet-4-5"},
		OpenAI:    config.OpenAIConfig{APIKey: "sk-o", Model: "gpt-4o-mini"},
	}
	r, err := NewResponder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*Claude); !ok {
		t.Errorf("expected *Claude, got %T", r)
	}
}

func TestNewResponder_FallsBackToOpenAI(t *testing.T) {
	cfg := config.ProvidersConfig{
		OpenAI: config.OpenAIConfig{APIKey: "sk-o", Model: "gpt-4o-mini"},
	}
	r, err := NewResponder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*OpenAI); !ok {
		t.Errorf("expected *OpenAI, got %T", r)
	}
}

func TestNewResponder_NoProvider(t *testing.T) {
	if _, err := NewResponder(config.ProvidersConfig{}); err == nil {
		t.Error("expected ErrNoProvider")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "https://api.anthropic.com"},
		{"   ", "https://api.anthropic.com"},
		{"https://proxy.example.com", "https://proxy.example.com"},
		{"https://proxy.example.com/", "https://proxy.example.com"},
		{"https://proxy.example.com/v1", "https://proxy.example.com"},
		{"https://proxy.example.com/v1/", "https://proxy.example.com"},
	}
	for _, tc := range cases {
		if got := normalizeBaseURL(tc.in, "https://api.anthropic.com"); got != tc.want {
			t.Errorf("normalizeBaseURL(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestTrimHistory(t *testing.T) {
	short := make([]anthropic.MessageParam, 10)
	if got := trimHistory(short); len(got) != 10 {
		t.Errorf("short history must be untouched, got %d", len(got))
	}

	long := make([]anthropic.MessageParam, maxHistoryEntries+6)
	if got := trimHistory(long); len(got) != maxHistoryEntries {
		t.Errorf("expected trim to %d, got %d", maxHistoryEntries, len(got))
	}
}

func TestClaudeForget(t *testing.T) {
	c := NewClaude(config.AnthropicConfig{APIKey: "sk-test", Model: "claude-sonnet-4-5"})
	c.history["1"] = make([]anthropic.MessageParam, 4)

	c.Forget("1")

	if len(c.history["1"]) != 0 {
		t.Error("expected history dropped")
	}
}
