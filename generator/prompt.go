package generator

import (
	"fmt"
	"strings"
)

// Prompt is the set of messages sent to the LLM.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is an earlier turn (optional).
type Message struct {
	Role    string
	Content string
}

// DefaultSystemPrompt asks for exactly one self-contained HTML document.
const DefaultSystemPrompt = "You build single-file web demos. Reply with one complete HTML document " +
	"(<!DOCTYPE html> through </html>) with inline CSS and JavaScript, inside a ```html code block. " +
	"Do not add explanations before or after it."

// BuildDemoPrompt wraps a demo's PROMPT.md contents. An empty system prompt is
// sent without a system message.
func BuildDemoPrompt(system, demoPrompt string) Prompt {
	return Prompt{
		System: system,
		User:   strings.TrimSpace(demoPrompt),
	}
}

// ContinuationPrompt asks the model to resume output that was cut off. The whole
// accumulated text is included so the model sees exactly where it stopped.
func ContinuationPrompt(accumulated string) string {
	var sb strings.Builder
	sb.WriteString("Your previous response was cut off before it was finished. ")
	sb.WriteString("This is everything you have produced so far:\n\n")
	sb.WriteString(accumulated)
	sb.WriteString("\n\n")
	sb.WriteString("Continue exactly where the output above stops. ")
	sb.WriteString("Output only the continuation: do not repeat anything that is already there, ")
	sb.WriteString("do not restart the document and do not add commentary.")
	return sb.String()
}

// continuationFor builds the follow-up request for a continuation prompt, keeping
// the system prompt of the first request.
func continuationFor(base Prompt, continuation string) Prompt {
	return Prompt{
		System: base.System,
		User:   continuation,
		History: []Message{
			{Role: "user", Content: base.User},
		},
	}
}

func (p Prompt) String() string {
	return fmt.Sprintf("system=%d bytes user=%d bytes history=%d", len(p.System), len(p.User), len(p.History))
}
