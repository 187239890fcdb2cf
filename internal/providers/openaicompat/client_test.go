package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"modelwire/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, modelID string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-api-key")
	cfg.BaseURL = server.URL
	return New("test", cfg, modelID)
}

func TestChat(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError bool
		checkResponse func(*testing.T, *core.ChatResponse)
	}{
		{
			name:       "successful request",
			statusCode: http.StatusOK,
			responseBody: `{
				"id": "chatcmpl-123",
				"object": "chat.completion",
				"created": 1677652288,
				"model": "gpt-4o-mini",
				"choices": [{
					"index": 0,
					"message": {"role": "assistant", "content": "Hello!"},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
			}`,
			checkResponse: func(t *testing.T, resp *core.ChatResponse) {
				if resp.ID != "chatcmpl-123" {
					t.Errorf("ID = %q, want %q", resp.ID, "chatcmpl-123")
				}
				if resp.Message.Content != "Hello!" {
					t.Errorf("Content = %q, want %q", resp.Message.Content, "Hello!")
				}
				if resp.FinishReason != "stop" {
					t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
				}
				if resp.Usage.TotalTokens != 30 {
					t.Errorf("TotalTokens = %d, want 30", resp.Usage.TotalTokens)
				}
			},
		},
		{
			name:          "no choices",
			statusCode:    http.StatusOK,
			responseBody:  `{"id": "x", "model": "gpt-4o-mini", "choices": []}`,
			expectedError: true,
		},
		{
			name:          "api error",
			statusCode:    http.StatusUnauthorized,
			responseBody:  `{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotModel string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("Path = %q, want /chat/completions", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
					t.Errorf("Authorization = %q", got)
				}
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				gotModel, _ = body["model"].(string)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = io.WriteString(w, tt.responseBody)
			}, "gpt-4o-mini")

			resp, err := client.Chat(context.Background(), &core.ChatRequest{
				Messages: []core.Message{{Role: "user", Content: "Hi"}},
			})
			if tt.expectedError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotModel != "gpt-4o-mini" {
				t.Errorf("request model = %q, want configured model id", gotModel)
			}
			tt.checkResponse(t, resp)
		})
	}
}

func TestChat_ErrorMentionsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "slow down", "type": "rate_limit"}}`)
	}, "m")

	_, err := client.Chat(context.Background(), &core.ChatRequest{Messages: []core.Message{{Role: "user", Content: "Hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("error %q should mention the status code", err)
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error should wrap *openai.APIError")
	}
}

func TestStreamChat(t *testing.T) {
	chunks := []string{"Hel", "lo", " world"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i, c := range chunks {
			finish := "null"
			if i == len(chunks)-1 {
				finish = `"stop"`
			}
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":%s}]}\n\n", c, finish)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}, "m")

	var deltas []string
	resp, err := client.StreamChat(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: "user", Content: "Hi"}},
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(deltas, "|") != "Hel|lo| world" {
		t.Errorf("deltas = %v", deltas)
	}
	if resp.Message.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", resp.Message.Content, "Hello world")
	}
	if resp.ID != "chatcmpl-1" || resp.FinishReason != "stop" {
		t.Errorf("ID = %q FinishReason = %q", resp.ID, resp.FinishReason)
	}
}

func TestStreamChat_HandlerErrorStops(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"id\":\"c\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}, "m")

	stop := errors.New("stop")
	_, err := client.StreamChat(context.Background(), &core.ChatRequest{}, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want handler error", err)
	}
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Path = %q, want /embeddings", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// Out-of-order data must be placed by index.
		_, _ = io.WriteString(w, `{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]},
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`)
	}, "text-embedding-3-small")

	resp, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Vectors) != 2 {
		t.Fatalf("len(Vectors) = %d, want 2", len(resp.Vectors))
	}
	if resp.Vectors[0][0] != 0.1 || resp.Vectors[1][0] != 0.3 {
		t.Errorf("Vectors = %v", resp.Vectors)
	}
	if resp.Usage.PromptTokens != 4 {
		t.Errorf("PromptTokens = %d, want 4", resp.Usage.PromptTokens)
	}
}

func TestEmbed_EmptyInputSkipsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "m")
	resp, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Vectors) != 0 {
		t.Errorf("Vectors = %v, want empty", resp.Vectors)
	}
}

func TestModerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("Path = %q, want /moderations", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "modr-1",
			"model": "text-moderation-latest",
			"results": [{
				"flagged": true,
				"categories": {"violence": true, "hate": false},
				"category_scores": {"violence": 0.9, "hate": 0.01}
			}]
		}`)
	}, "text-moderation-latest")

	resp, err := client.Moderate(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Flagged {
		t.Error("Flagged = false, want true")
	}
	if !resp.Categories["violence"] || resp.Categories["hate"] {
		t.Errorf("Categories = %v", resp.Categories)
	}
	if resp.Scores["violence"] < 0.89 {
		t.Errorf("Scores = %v", resp.Scores)
	}
}

func TestGenerateImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Path = %q, want /images/generations", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created": 1, "data": [{"url": "https://img.example/1.png", "revised_prompt": "a cat"}]}`)
	}, "dall-e-3")

	img, err := client.GenerateImage(context.Background(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.URL != "https://img.example/1.png" || img.RevisedPrompt != "a cat" {
		t.Errorf("Image = %+v", img)
	}
}
