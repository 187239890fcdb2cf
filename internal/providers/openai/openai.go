// Package openai registers the OpenAI provider.
package openai

import (
	goopenai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
	"modelwire/internal/providers"
	"modelwire/internal/providers/openaicompat"
)

const (
	// Type is the provider identifier used in modelwire.<namespace>.provider.
	Type = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
)

// Registration provides catalog registration for the OpenAI provider.
var Registration = openaicompat.Spec{
	Type:   Type,
	Config: clientConfig,
	Capabilities: []core.Capability{
		core.ChatModel,
		core.EmbeddingModel,
		core.ModerationModel,
		core.ImageModel,
	},
	Defaults: map[core.Capability]string{
		core.ChatModel:       "gpt-4o-mini",
		core.EmbeddingModel:  "text-embedding-3-small",
		core.ModerationModel: "text-moderation-latest",
		core.ImageModel:      "dall-e-3",
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
