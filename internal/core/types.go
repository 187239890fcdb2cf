package core

import (
	"fmt"
	"strings"
)

// ProviderCandidate is one provider implementation available for a capability.
// Candidates are compared by Provider only.
type ProviderCandidate struct {
	Provider   string     `json:"provider" yaml:"provider"`
	Capability Capability `json:"capability" yaml:"capability"`
	// InProcess marks models computed locally rather than served by a remote backend.
	InProcess bool `json:"in_process,omitempty" yaml:"in_process,omitempty"`
}

// ModelRequest records that the application needs a bean of Capability named ModelName.
type ModelRequest struct {
	Capability Capability `json:"capability" yaml:"capability"`
	ModelName  string     `json:"model_name" yaml:"model_name"`
}

// NewModelRequest builds a request with a normalized model name.
func NewModelRequest(capability Capability, modelName string) ModelRequest {
	return ModelRequest{Capability: capability, ModelName: NormalizeModelName(modelName)}
}

// ParseModelRequest parses "capability" or "capability:name", e.g. "embedding:search".
func ParseModelRequest(s string) (ModelRequest, error) {
	capPart, name, _ := strings.Cut(strings.TrimSpace(s), ":")
	capability, err := ParseCapability(capPart)
	if err != nil {
		return ModelRequest{}, fmt.Errorf("invalid model request %q: %w", s, err)
	}
	return NewModelRequest(capability, name), nil
}

// String renders the request in the form accepted by ParseModelRequest.
func (r ModelRequest) String() string {
	if IsDefaultModelName(r.ModelName) {
		return string(r.Capability)
	}
	return string(r.Capability) + ":" + r.ModelName
}

// SelectionKey identifies one provider resolution. Chat and streaming chat requests of the
// same model name share a key.
type SelectionKey struct {
	Capability Capability
	ModelName  string
}

// Key returns the resolution key for the request.
func (r ModelRequest) Key() SelectionKey {
	return SelectionKey{
		Capability: r.Capability.SelectionCapability(),
		ModelName:  NormalizeModelName(r.ModelName),
	}
}

// Selection is the outcome of resolving one SelectionKey.
// Selected is false when a user supplied bean satisfies the request and no provider is used.
type Selection struct {
	Capability Capability `json:"capability" yaml:"capability"`
	ModelName  string     `json:"model_name" yaml:"model_name"`
	Provider   string     `json:"provider,omitempty" yaml:"provider,omitempty"`
	Selected   bool       `json:"selected" yaml:"selected"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
}

// Message represents a single message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents the chat completion response
type ChatResponse struct {
	ID           string  `json:"id"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Usage        Usage   `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EmbeddingResponse holds one vector per input text, in input order.
type EmbeddingResponse struct {
	Model    string      `json:"model"`
	Provider string      `json:"provider"`
	Vectors  [][]float32 `json:"vectors"`
	Usage    Usage       `json:"usage"`
}

// Moderation is the verdict for a single input.
type Moderation struct {
	Flagged    bool               `json:"flagged"`
	Categories map[string]bool    `json:"categories,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// Image is a generated image, returned either as a URL or base64 payload.
type Image struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}
