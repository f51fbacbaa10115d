package generator

import (
	"context"
	"errors"
	"time"
)

// LLMClient abstracts the chat model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// LLMSettings is the base configuration handed to concrete clients.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

var (
	// ErrCompletionFailed wraps every transport or API failure of a completion call.
	ErrCompletionFailed = errors.New("chat completion failed")
	// ErrEmptyResponse means the API answered without any choices.
	ErrEmptyResponse = errors.New("chat completion returned no choices")
)
