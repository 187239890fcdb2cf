// Package core defines the capability model, bean interfaces and error taxonomy shared by
// the resolver, the bean graph and the provider packages.
package core

import "context"

// ChatLanguageModel executes blocking chat completions.
type ChatLanguageModel interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// StreamHandler receives streamed content deltas in order.
// Returning an error aborts the stream.
type StreamHandler func(delta string) error

// StreamingChatLanguageModel streams chat completions token by token and returns the
// aggregated response once the stream ends.
type StreamingChatLanguageModel interface {
	StreamChat(ctx context.Context, req *ChatRequest, onDelta StreamHandler) (*ChatResponse, error)
}

// EmbeddingModelClient computes embeddings for a batch of texts.
type EmbeddingModelClient interface {
	Embed(ctx context.Context, texts []string) (*EmbeddingResponse, error)
}

// ModerationModelClient classifies text.
type ModerationModelClient interface {
	Moderate(ctx context.Context, text string) (*Moderation, error)
}

// ImageModelClient generates images.
type ImageModelClient interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}
