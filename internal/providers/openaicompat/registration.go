package openaicompat

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
	"modelwire/internal/httpclient"
	"modelwire/internal/providers"
)

// ConfigFunc builds the go-openai client configuration from resolved provider settings.
type ConfigFunc func(s providers.Settings) (openai.ClientConfig, error)

// Spec describes an OpenAI-compatible provider: its identifier, how to configure the
// client, and which capabilities it offers.
type Spec struct {
	Type         string
	Config       ConfigFunc
	Capabilities []core.Capability
	// Defaults holds the upstream model used when configuration names none.
	Defaults map[core.Capability]string
}

// Registration turns a Spec into a catalog registration. Streaming chat is offered whenever
// chat is.
func (s Spec) Registration() providers.Registration {
	reg := providers.Registration{Type: s.Type}
	for _, capability := range s.Capabilities {
		switch capability {
		case core.ChatModel, core.StreamingChatModel:
			reg.Chat = func(opts providers.ProviderOptions) (core.ChatLanguageModel, error) {
				return s.newClient(core.ChatModel, opts)
			}
			reg.StreamingChat = func(opts providers.ProviderOptions) (core.StreamingChatLanguageModel, error) {
				return s.newClient(core.StreamingChatModel, opts)
			}
		case core.EmbeddingModel:
			reg.Embedding = func(opts providers.ProviderOptions) (core.EmbeddingModelClient, error) {
				return s.newClient(capability, opts)
			}
		case core.ModerationModel:
			reg.Moderation = func(opts providers.ProviderOptions) (core.ModerationModelClient, error) {
				return s.newClient(capability, opts)
			}
		case core.ImageModel:
			reg.Image = func(opts providers.ProviderOptions) (core.ImageModelClient, error) {
				return s.newClient(capability, opts)
			}
		}
	}
	return reg
}

func (s Spec) newClient(capability core.Capability, opts providers.ProviderOptions) (*Client, error) {
	cfg, err := s.Config(opts.Settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Type, err)
	}
	cfg.HTTPClient = httpclient.ForProvider(opts.Settings.Timeout)
	modelID := opts.ModelID
	if modelID == "" {
		modelID = opts.Settings.ModelID(capability)
	}
	if modelID == "" {
		modelID = s.Defaults[capability.SelectionCapability()]
	}
	if modelID == "" {
		return nil, fmt.Errorf("%s: no model id configured for %s (set modelwire.%s.model-id)",
			s.Type, capability.BeanType(), core.ConfigNamespace(capability, opts.ModelName))
	}
	return New(s.Type, cfg, modelID), nil
}
