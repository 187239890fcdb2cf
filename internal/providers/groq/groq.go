// Package groq registers the Groq provider.
package groq

import (
	goopenai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
	"modelwire/internal/providers"
	"modelwire/internal/providers/openaicompat"
)

const (
	// Type is the provider identifier used in modelwire.<namespace>.provider.
	Type = "groq"

	defaultBaseURL = "https://api.groq.com/openai/v1"
)

// Registration provides catalog registration for the Groq provider.
var Registration = openaicompat.Spec{
	Type:         Type,
	Config:       clientConfig,
	Capabilities: []core.Capability{core.ChatModel},
	Defaults: map[core.Capability]string{
		core.ChatModel: "llama-3.3-70b-versatile",
	},
}.Registration()

func clientConfig(s providers.Settings) (goopenai.ClientConfig, error) {
	cfg := goopenai.DefaultConfig(s.APIKey)
	cfg.BaseURL = defaultBaseURL
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return cfg, nil
}
