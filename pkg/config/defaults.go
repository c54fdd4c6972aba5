package config

// DefaultConfig returns the configuration used when no config file exists.
// Every value can be overridden by the JSON config or ANONCHAT_* env vars.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Providers: ProvidersConfig{
			Anthropic: AnthropicConfig{
				Model:     "claude-sonnet-4.6",
				MaxTokens: 1024,
			},
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
		},
		Relay: RelayConfig{
			StatePath: "~/.anonchat/sessions.json",
			Workers:   4,
		},
		Pairing: PairingConfig{
			InviteTTLMinutes:     15,
			SessionTimerMinutes:  120,
			TransitionTTLMinutes: 5,
			SweepSchedule:        "* * * * *",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18791,
		},
	}
}
