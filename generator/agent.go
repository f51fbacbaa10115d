package generator

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// contextWarnRatio is the share of the context window a continuation prompt may
// use before a warning is logged.
const contextWarnRatio = 0.9

// Agent turns a demo prompt into an HTML artifact, repairing truncated output.
type Agent struct {
	llm              LLMClient
	logger           *zap.Logger
	system           string
	maxContinuations int
	contextLength    int
	estimate         func(model, text string) (int, error)
}

type AgentOption func(*Agent)

func WithSystemPrompt(s string) AgentOption {
	return func(a *Agent) { a.system = s }
}

func WithMaxContinuations(n int) AgentOption {
	return func(a *Agent) { a.maxContinuations = n }
}

// WithContextLength enables the context-size warning for continuation prompts.
func WithContextLength(n int) AgentOption {
	return func(a *Agent) { a.contextLength = n }
}

func WithLogger(l *zap.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:              llm,
		logger:           zap.NewNop(),
		system:           DefaultSystemPrompt,
		maxContinuations: DefaultMaxContinuations,
		estimate:         EstimateTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Generate runs the initial completion, continues it while it looks truncated
// and extracts the document. Only a failed initial call is returned as an error.
func (a *Agent) Generate(ctx context.Context, demoPrompt string) (Artifact, error) {
	prompt := BuildDemoPrompt(a.system, demoPrompt)
	a.logger.Debug("requesting completion", zap.Stringer("prompt", prompt))

	initial, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return Artifact{}, err
	}
	a.logger.Info("completion received",
		zap.String("model", initial.Model),
		zap.Int("completion_tokens", initial.Usage.CompletionTokens),
		zap.Duration("elapsed", initial.Elapsed),
		zap.String("finish_reason", initial.FinishReason),
	)

	ask := func(ctx context.Context, continuation string) (Completion, error) {
		a.checkContextSize(initial.Model, continuation)
		c, err := a.llm.Complete(ctx, continuationFor(prompt, continuation))
		observeContinuation(initial.Model, err == nil)
		if err != nil {
			a.logger.Warn("continuation failed", zap.String("model", initial.Model), zap.Error(err))
			return Completion{}, err
		}
		a.logger.Info("continuation received",
			zap.String("model", initial.Model),
			zap.Int("completion_tokens", c.Usage.CompletionTokens),
			zap.Duration("elapsed", c.Elapsed),
		)
		return c, nil
	}

	result, attempts := Continue(ctx, initial, ask, a.maxContinuations)
	artifact := Artifact{
		HTML:      ExtractHTML(result.Text),
		Result:    result,
		Attempts:  attempts,
		Truncated: IsTruncated(result.Text),
	}
	if artifact.Truncated {
		truncatedArtifactsTotal.WithLabelValues(initial.Model).Inc()
		a.logger.Warn("output still truncated",
			zap.String("model", initial.Model),
			zap.Int("attempts", len(attempts)),
			zap.Int("failed", artifact.FailedAttempts()),
		)
	}
	return artifact, nil
}

func (a *Agent) checkContextSize(model, continuation string) {
	if a.contextLength <= 0 || a.estimate == nil {
		return
	}
	n, err := a.estimate(model, continuation)
	if err != nil {
		a.logger.Debug("token estimate unavailable", zap.Error(err))
		return
	}
	if float64(n) > contextWarnRatio*float64(a.contextLength) {
		a.logger.Warn("continuation prompt close to context limit",
			zap.String("model", model),
			zap.Int("estimated_tokens", n),
			zap.Int("context_length", a.contextLength),
		)
	}
}
