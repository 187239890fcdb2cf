// Package openaicompat implements the model client interfaces on top of any backend that
// speaks the OpenAI REST API. The openai, azure, ollama and groq providers are thin
// registrations around it.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
)

// Client is an OpenAI-compatible model client bound to one upstream model id.
type Client struct {
	api      *openai.Client
	provider string
	modelID  string
}

// New wraps a configured go-openai client.
func New(provider string, cfg openai.ClientConfig, modelID string) *Client {
	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		provider: provider,
		modelID:  modelID,
	}
}

// ModelID returns the upstream model used when a request does not name one.
func (c *Client) ModelID() string {
	return c.modelID
}

func (c *Client) model(requested string) string {
	if requested != "" {
		return requested
	}
	return c.modelID
}

func (c *Client) chatRequest(req *core.ChatRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    c.model(req.Model),
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	return out
}

// Chat sends a blocking chat completion request.
func (c *Client) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("chat request is required")
	}
	resp, err := c.api.CreateChatCompletion(ctx, c.chatRequest(req))
	if err != nil {
		return nil, c.wrap("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: chat completion returned no choices", c.provider)
	}
	choice := resp.Choices[0]
	return &core.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Message: core.Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		},
		FinishReason: string(choice.FinishReason),
		Usage: core.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// StreamChat streams a chat completion, calling onDelta for every content fragment, and
// returns the assembled response once the stream ends.
func (c *Client) StreamChat(ctx context.Context, req *core.ChatRequest, onDelta core.StreamHandler) (*core.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("chat request is required")
	}
	streamReq := c.chatRequest(req)
	streamReq.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, streamReq)
	if err != nil {
		return nil, c.wrap("chat completion stream", err)
	}
	defer stream.Close()

	out := &core.ChatResponse{Model: streamReq.Model, Message: core.Message{Role: openai.ChatMessageRoleAssistant}}
	var content strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, c.wrap("chat completion stream", err)
		}
		if out.ID == "" {
			out.ID = chunk.ID
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				out.FinishReason = string(choice.FinishReason)
			}
			if choice.Delta.Content == "" {
				continue
			}
			content.WriteString(choice.Delta.Content)
			if onDelta != nil {
				if err := onDelta(choice.Delta.Content); err != nil {
					return nil, err
				}
			}
		}
	}
	out.Message.Content = content.String()
	return out, nil
}

// Embed computes one vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) (*core.EmbeddingResponse, error) {
	if len(texts) == 0 {
		return &core.EmbeddingResponse{Model: c.modelID}, nil
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.modelID),
	})
	if err != nil {
		return nil, c.wrap("embeddings", err)
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			continue
		}
		vectors[d.Index] = d.Embedding
	}
	return &core.EmbeddingResponse{
		Model:   string(resp.Model),
		Vectors: vectors,
		Usage: core.Usage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Moderate classifies a text against the provider's moderation categories.
func (c *Client) Moderate(ctx context.Context, text string) (*core.Moderation, error) {
	resp, err := c.api.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: c.modelID,
	})
	if err != nil {
		return nil, c.wrap("moderation", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%s: moderation returned no results", c.provider)
	}
	result := resp.Results[0]

	out := &core.Moderation{Flagged: result.Flagged}
	// The category structs carry json tags matching the upstream category names.
	if err := remarshal(result.Categories, &out.Categories); err != nil {
		return nil, fmt.Errorf("%s: decode moderation categories: %w", c.provider, err)
	}
	if err := remarshal(result.CategoryScores, &out.Scores); err != nil {
		return nil, fmt.Errorf("%s: decode moderation scores: %w", c.provider, err)
	}
	return out, nil
}

// GenerateImage creates one image for a prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*core.Image, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.modelID,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, c.wrap("image generation", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s: image generation returned no data", c.provider)
	}
	d := resp.Data[0]
	return &core.Image{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt}, nil
}

// wrap annotates an upstream failure with the provider and the HTTP status when known.
func (c *Client) wrap(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s failed (status %d): %w", c.provider, op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s %s failed (status %d): %w", c.provider, op, reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("%s %s failed: %w", c.provider, op, err)
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
