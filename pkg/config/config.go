package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Providers ProvidersConfig `json:"providers"`
	Relay     RelayConfig     `json:"relay"`
	Pairing   PairingConfig   `json:"pairing"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type TelegramConfig struct {
	Enabled   bool                `env:"ANONCHAT_TELEGRAM_ENABLED"    json:"enabled"`
	Token     string              `env:"ANONCHAT_TELEGRAM_TOKEN"      json:"token"`
	AllowFrom FlexibleStringSlice `env:"ANONCHAT_TELEGRAM_ALLOW_FROM" json:"allow_from"`
}

type ProvidersConfig struct {
	Anthropic AnthropicConfig `json:"anthropic"`
	OpenAI    OpenAIConfig    `json:"openai"`
}

type AnthropicConfig struct {
	APIKey    string `env:"ANONCHAT_PROVIDERS_ANTHROPIC_API_KEY"    json:"api_key"`
	APIBase   string `env:"ANONCHAT_PROVIDERS_ANTHROPIC_API_BASE"   json:"api_base"`
	Model     string `env:"ANONCHAT_PROVIDERS_ANTHROPIC_MODEL"      json:"model"`
	MaxTokens int    `env:"ANONCHAT_PROVIDERS_ANTHROPIC_MAX_TOKENS" json:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey  string `env:"ANONCHAT_PROVIDERS_OPENAI_API_KEY"  json:"api_key"`
	APIBase string `env:"ANONCHAT_PROVIDERS_OPENAI_API_BASE" json:"api_base"`
	Model   string `env:"ANONCHAT_PROVIDERS_OPENAI_MODEL"    json:"model"`
}

type RelayConfig struct {
	StatePath string `env:"ANONCHAT_RELAY_STATE_PATH" json:"state_path"`
	Workers   int    `env:"ANONCHAT_RELAY_WORKERS"    json:"workers"`
}

type PairingConfig struct {
	InviteTTLMinutes     int    `env:"ANONCHAT_PAIRING_INVITE_TTL_MINUTES"     json:"invite_ttl_minutes"`
	SessionTimerMinutes  int    `env:"ANONCHAT_PAIRING_SESSION_TIMER_MINUTES"  json:"session_timer_minutes"`
	TransitionTTLMinutes int    `env:"ANONCHAT_PAIRING_TRANSITION_TTL_MINUTES" json:"transition_ttl_minutes"`
	SweepSchedule        string `env:"ANONCHAT_PAIRING_SWEEP_SCHEDULE"         json:"sweep_schedule"`
}

type GatewayConfig struct {
	Host string `env:"ANONCHAT_GATEWAY_HOST" json:"host"`
	Port int    `env:"ANONCHAT_GATEWAY_PORT" json:"port"`
}

// HasProvider reports whether any AI responder provider is configured.
func (c *Config) HasProvider() bool {
	return c.Providers.Anthropic.APIKey != "" || c.Providers.OpenAI.APIKey != ""
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Env vars can still configure a fresh install.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// StatePath returns the session store path with "~" expanded.
func (c *Config) StatePath() string {
	return expandHome(c.Relay.StatePath)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
