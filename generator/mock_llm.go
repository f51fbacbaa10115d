package generator

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockLLM is a local stand-in that never calls a model. It replays Replies in
// order (the last one repeats); with no replies it builds a small page that
// quotes the prompt.
type MockLLM struct {
	Replies []string

	mu    sync.Mutex
	calls int
}

func (m *MockLLM) Complete(_ context.Context, prompt Prompt) (Completion, error) {
	m.mu.Lock()
	n := m.calls
	m.calls++
	m.mu.Unlock()

	text := m.reply(n, prompt)
	words := len(strings.Fields(text))
	return Completion{
		Text: text,
		Usage: TokenUsage{
			PromptTokens:     len(strings.Fields(prompt.User)),
			CompletionTokens: words,
			TotalTokens:      len(strings.Fields(prompt.User)) + words,
		},
		Elapsed:      time.Millisecond,
		Model:        "mock",
		ID:           "mock-completion",
		Created:      time.Now().Unix(),
		FinishReason: "stop",
	}, nil
}

// Calls reports how many completions were requested.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockLLM) reply(n int, prompt Prompt) string {
	if len(m.Replies) > 0 {
		if n >= len(m.Replies) {
			n = len(m.Replies) - 1
		}
		return m.Replies[n]
	}
	var sb strings.Builder
	sb.WriteString("```html\n<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"UTF-8\"><title>Mock Demo</title></head>\n<body>\n")
	sb.WriteString("<h1>Mock Demo</h1>\n<pre>")
	sb.WriteString(escapeHTML(prompt.User))
	sb.WriteString("</pre>\n</body>\n</html>\n```\n")
	return sb.String()
}
