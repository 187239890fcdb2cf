// Package ollama registers a local Ollama server through its OpenAI-compatible endpoint.
package ollama

import (
	goopenai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
	"modelwire/internal/providers"
	"modelwire/internal/providers/openaicompat"
)

const (
	// Type is the provider identifier used in modelwire.<namespace>.provider.
	Type = "ollama"

	defaultBaseURL = "http://localhost:11434/v1"
)

// Registration provides catalog registration for the Ollama provider.
var Registration = openaicompat.Spec{
	Type:   Type,
	Config: clientConfig,
	Capabilities: []core.Capability{
		core.ChatModel,
		core.EmbeddingModel,
	},
	Defaults: map[core.Capability]string{
		core.ChatModel:      "llama3.2",
		core.EmbeddingModel: "nomic-embed-text",
	},
}.Registration()

func clientConfig(s providers.Settings) (goopenai.ClientConfig, error) {
	// Ollama ignores the key but the client always sends one.
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultBaseURL
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return cfg, nil
}
