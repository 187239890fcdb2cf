package core

import (
	"fmt"
	"strings"
)

// Capability identifies the kind of model bean an application can request.
type Capability string

const (
	// ChatModel is a blocking chat completion model.
	ChatModel Capability = "chat"
	// StreamingChatModel is a token-streaming chat completion model.
	// It shares provider selection and configuration with ChatModel.
	StreamingChatModel Capability = "streaming-chat"
	// EmbeddingModel turns text into vectors.
	EmbeddingModel Capability = "embedding"
	// ModerationModel classifies text against a content policy.
	ModerationModel Capability = "moderation"
	// ImageModel generates images from a prompt.
	ImageModel Capability = "image"
)

// Capabilities lists every capability in a stable order.
var Capabilities = []Capability{
	ChatModel,
	StreamingChatModel,
	EmbeddingModel,
	ModerationModel,
	ImageModel,
}

// ParseCapability converts a user supplied string into a Capability.
// Both the short form ("chat") and the config namespace form ("chat-model") are accepted.
func ParseCapability(s string) (Capability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Capabilities {
		if s == string(c) || s == string(c)+"-model" {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability: %q", s)
}

// SelectionCapability returns the capability whose candidates and configuration drive
// provider selection. Streaming chat resolves together with chat.
func (c Capability) SelectionCapability() Capability {
	if c == StreamingChatModel {
		return ChatModel
	}
	return c
}

// Namespace returns the configuration namespace for the capability, e.g. "chat-model".
func (c Capability) Namespace() string {
	return string(c.SelectionCapability()) + "-model"
}

// BeanType is the human readable bean description used in diagnostics.
func (c Capability) BeanType() string {
	switch c {
	case ChatModel, StreamingChatModel:
		return "ChatModel or StreamingChatModel"
	case EmbeddingModel:
		return "EmbeddingModel"
	case ModerationModel:
		return "ModerationModel"
	case ImageModel:
		return "ImageModel"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the known capabilities.
func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}
