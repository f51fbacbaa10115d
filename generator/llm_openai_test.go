package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLLM(t *testing.T, url string) *OpenAILLM {
	t.Helper()
	llm, err := NewOpenAILLMFromConfig(&LLMSettings{
		Provider:    "openrouter",
		Model:       "openai/gpt-4o-mini",
		APIKey:      "test-key",
		BaseURL:     url,
		Temperature: 0.7,
		MaxTokens:   2000,
		MaxRetries:  0,
	})
	require.NoError(t, err)
	return llm
}

func TestOpenAILLMComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, AttributionReferer, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, AttributionTitle, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-123",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "openai/gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "length",
				"message": {"role": "assistant", "content": "<html><body>hi"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer server.Close()

	llm := newTestLLM(t, server.URL)
	got, err := llm.Complete(context.Background(), BuildDemoPrompt("be brief", "make a clock"))
	require.NoError(t, err)

	assert.Equal(t, "<html><body>hi", got.Text)
	assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19}, got.Usage)
	assert.Equal(t, "gen-123", got.ID)
	assert.Equal(t, int64(1700000000), got.Created)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
	assert.Equal(t, "length", got.FinishReason)
	assert.Greater(t, int64(got.Elapsed), int64(0))

	assert.Equal(t, "openai/gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	assert.InDelta(t, 2000, body["max_tokens"], 1e-9)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "make a clock", msgs[1].(map[string]any)["content"])
}

func TestOpenAILLMCompleteWithoutSystemPrompt(t *testing.T) {
	var body struct {
		Messages []map[string]any `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	got, err := newTestLLM(t, server.URL).Complete(context.Background(), Prompt{User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Text)
	assert.Equal(t, TokenUsage{}, got.Usage)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0]["role"])
}

func TestOpenAILLMCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"upstream down"}}`, http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestLLM(t, server.URL).Complete(context.Background(), Prompt{User: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestOpenAILLMCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestLLM(t, server.URL).Complete(context.Background(), Prompt{User: "hello"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestNewOpenAILLMFromConfigValidation(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{Model: "m"})
	assert.ErrorContains(t, err, "api key")
	_, err = NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k"})
	assert.ErrorContains(t, err, "model")
}
