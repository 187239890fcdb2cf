package providers

import (
	"context"

	"modelwire/internal/core"
)

// The wrappers stamp the selected provider name onto responses so callers can tell which
// backend served a bean without knowing how it was resolved.

type chatWrapper struct {
	inner        core.ChatLanguageModel
	providerName string
}

func (w *chatWrapper) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	resp, err := w.inner.Chat(ctx, req)
	if err == nil && resp != nil {
		resp.Provider = w.providerName
	}
	return resp, err
}

type streamingChatWrapper struct {
	inner        core.StreamingChatLanguageModel
	providerName string
}

func (w *streamingChatWrapper) StreamChat(ctx context.Context, req *core.ChatRequest, onDelta core.StreamHandler) (*core.ChatResponse, error) {
	resp, err := w.inner.StreamChat(ctx, req, onDelta)
	if err == nil && resp != nil {
		resp.Provider = w.providerName
	}
	return resp, err
}

type embeddingWrapper struct {
	inner        core.EmbeddingModelClient
	providerName string
}

func (w *embeddingWrapper) Embed(ctx context.Context, texts []string) (*core.EmbeddingResponse, error) {
	resp, err := w.inner.Embed(ctx, texts)
	if err == nil && resp != nil {
		resp.Provider = w.providerName
	}
	return resp, err
}
