package generator

import "context"

// DefaultMaxContinuations bounds how many times a truncated generation is
// sent back to the model.
const DefaultMaxContinuations = 3

// AskFunc requests a continuation for the given prompt.
type AskFunc func(ctx context.Context, prompt string) (Completion, error)

// Continue keeps asking for more while the accumulated text looks truncated,
// at most maxAttempts times. The first failed call ends the loop and whatever
// was accumulated so far is returned; Continue itself never fails.
func Continue(ctx context.Context, initial Completion, ask AskFunc, maxAttempts int) (Completion, []Attempt) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxContinuations
	}

	acc := initial
	var attempts []Attempt
	for n := 1; n <= maxAttempts && IsTruncated(acc.Text); n++ {
		next, err := ask(ctx, ContinuationPrompt(acc.Text))
		if err != nil {
			attempts = append(attempts, Attempt{Number: n, Err: err})
			break
		}
		acc.Text = acc.Text + "\n" + next.Text
		acc.Usage = acc.Usage.Add(next.Usage)
		acc.Elapsed += next.Elapsed
		attempts = append(attempts, Attempt{Number: n, Succeeded: true})
	}
	return acc, attempts
}
