package providers

import (
	"fmt"

	"modelwire/internal/core"
)

// Create instantiates the model client for capability from the given provider.
// The returned value implements the capability's client interface from package core.
func (c *Catalog) Create(capability core.Capability, providerType string, opts ProviderOptions) (any, error) {
	reg, ok := c.Lookup(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}

	switch capability {
	case core.ChatModel:
		if reg.Chat == nil {
			return nil, errNotOffered(providerType, capability)
		}
		m, err := reg.Chat(opts)
		if err != nil {
			return nil, err
		}
		return &chatWrapper{inner: m, providerName: providerType}, nil
	case core.StreamingChatModel:
		if reg.StreamingChat == nil {
			return nil, errNotOffered(providerType, capability)
		}
		m, err := reg.StreamingChat(opts)
		if err != nil {
			return nil, err
		}
		return &streamingChatWrapper{inner: m, providerName: providerType}, nil
	case core.EmbeddingModel:
		if reg.Embedding == nil {
			return nil, errNotOffered(providerType, capability)
		}
		m, err := reg.Embedding(opts)
		if err != nil {
			return nil, err
		}
		return &embeddingWrapper{inner: m, providerName: providerType}, nil
	case core.ModerationModel:
		if reg.Moderation == nil {
			return nil, errNotOffered(providerType, capability)
		}
		return reg.Moderation(opts)
	case core.ImageModel:
		if reg.Image == nil {
			return nil, errNotOffered(providerType, capability)
		}
		return reg.Image(opts)
	default:
		return nil, fmt.Errorf("unknown capability: %s", capability)
	}
}
