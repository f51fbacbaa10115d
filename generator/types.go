package generator

import "time"

// TokenUsage mirrors the usage block of a chat completion. Unknown fields stay 0.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the field-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Completion is the result of one chat completion call, or of several calls
// stitched together by Continue.
type Completion struct {
	Text    string
	Usage   TokenUsage
	Elapsed time.Duration

	Model        string
	ID           string
	Created      int64
	FinishReason string
}

// Attempt records one continuation call.
type Attempt struct {
	Number    int
	Succeeded bool
	Err       error
}

// Artifact is the outcome of a generation request: the extracted document plus
// the combined completion it came from.
type Artifact struct {
	HTML     string
	Result   Completion
	Attempts []Attempt
	// Truncated is still true when the continuation budget ran out or a
	// continuation failed before the document was closed.
	Truncated bool
}

// FailedAttempts counts the attempts that returned an error.
func (a Artifact) FailedAttempts() int {
	n := 0
	for _, at := range a.Attempts {
		if !at.Succeeded {
			n++
		}
	}
	return n
}
