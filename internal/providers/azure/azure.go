// Package azure registers the Azure OpenAI provider.
package azure

import (
	"errors"

	goopenai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
	"modelwire/internal/providers"
	"modelwire/internal/providers/openaicompat"
)

// Type is the provider identifier used in modelwire.<namespace>.provider.
const Type = "azure-openai"

const defaultAPIVersion = "2024-10-21"

// Registration provides catalog registration for the Azure OpenAI provider.
// Model ids are deployment names.
var Registration = openaicompat.Spec{
	Type:   Type,
	Config: clientConfig,
	Capabilities: []core.Capability{
		core.ChatModel,
		core.EmbeddingModel,
		core.ImageModel,
	},
}.Registration()

func clientConfig(s providers.Settings) (goopenai.ClientConfig, error) {
	if s.BaseURL == "" {
		return goopenai.ClientConfig{}, errors.New("endpoint is required (modelwire.providers.azure-openai.base-url or AZURE_OPENAI_ENDPOINT)")
	}
	cfg := goopenai.DefaultAzureConfig(s.APIKey, s.BaseURL)
	cfg.APIVersion = defaultAPIVersion
	if s.APIVersion != "" {
		cfg.APIVersion = s.APIVersion
	}
	return cfg, nil
}
