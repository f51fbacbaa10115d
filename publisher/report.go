package publisher

import (
	"fmt"
	"time"

	"ai_demo_generator/catalog"
	"ai_demo_generator/generator"
)

// CLIVersion is recorded in every report.
const CLIVersion = "1.0.0"

// Report is the results.json written next to every generated demo.
type Report struct {
	Timestamp        string               `json:"timestamp"`
	RunID            string               `json:"run_id,omitempty"`
	Execution        Execution            `json:"execution"`
	Tokens           generator.TokenUsage `json:"tokens"`
	Cost             catalog.Cost         `json:"cost"`
	ModelCard        ModelCard            `json:"model_card"`
	Request          RequestInfo          `json:"request"`
	ResponseMetadata ResponseMetadata     `json:"response_metadata"`
	Continuation     ContinuationInfo     `json:"continuation"`
	DemoInfo         DemoInfo             `json:"demo_info"`
	RawResponse      string               `json:"raw_response"`
}

type Execution struct {
	DurationSeconds string `json:"duration_seconds"`
	ModelUsed       string `json:"model_used"`
	ModelRequested  string `json:"model_requested"`
}

// ModelCard mirrors the catalog entry. ContextLength is "Unknown" when the
// catalog had no entry for the model.
type ModelCard struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ContextLength any            `json:"context_length"`
	Architecture  map[string]any `json:"architecture"`
	Pricing       any            `json:"pricing"`
	TopProvider   map[string]any `json:"top_provider"`
}

type RequestInfo struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt *string `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type ResponseMetadata struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Object  string `json:"object"`
}

type ContinuationInfo struct {
	Attempts  int  `json:"attempts"`
	Failed    int  `json:"failed"`
	Truncated bool `json:"truncated"`
}

type DemoInfo struct {
	DemoName    string `json:"demo_name"`
	GeneratedAt string `json:"generated_at"`
	CLIVersion  string `json:"cli_version"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// BuildReport assembles the results.json content for a generation.
func BuildReport(params PublishParams, runID string, now time.Time) Report {
	res := params.Artifact.Result
	ts := now.UTC().Format(timestampLayout)

	modelUsed := res.Model
	if modelUsed == "" {
		modelUsed = params.Model
	}

	var system *string
	if params.SystemPrompt != "" {
		s := params.SystemPrompt
		system = &s
	}

	return Report{
		Timestamp: ts,
		RunID:     runID,
		Execution: Execution{
			DurationSeconds: fmt.Sprintf("%.3f", res.Elapsed.Seconds()),
			ModelUsed:       modelUsed,
			ModelRequested:  params.Model,
		},
		Tokens:    res.Usage,
		Cost:      params.ModelCard.Cost(res.Usage),
		ModelCard: newModelCard(params.Model, params.ModelCard),
		Request: RequestInfo{
			Prompt:       params.Prompt,
			SystemPrompt: system,
			Temperature:  params.Temperature,
			MaxTokens:    params.MaxTokens,
		},
		ResponseMetadata: ResponseMetadata{
			ID:      res.ID,
			Created: res.Created,
			Object:  "chat.completion",
		},
		Continuation: ContinuationInfo{
			Attempts:  len(params.Artifact.Attempts),
			Failed:    params.Artifact.FailedAttempts(),
			Truncated: params.Artifact.Truncated,
		},
		DemoInfo: DemoInfo{
			DemoName:    params.Demo,
			GeneratedAt: ts,
			CLIVersion:  CLIVersion,
		},
		RawResponse: res.Text,
	}
}

func newModelCard(requested string, m *catalog.Model) ModelCard {
	if m == nil {
		return ModelCard{
			ID:            requested,
			Name:          "Unknown",
			Description:   "No description available",
			ContextLength: "Unknown",
			Architecture:  map[string]any{},
			Pricing:       map[string]any{},
			TopProvider:   map[string]any{},
		}
	}
	card := ModelCard{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		ContextLength: m.ContextLength,
		Architecture:  m.Architecture,
		Pricing:       m.Pricing,
		TopProvider:   m.TopProvider,
	}
	if card.Name == "" {
		card.Name = "Unknown"
	}
	if card.Description == "" {
		card.Description = "No description available"
	}
	if m.ContextLength == 0 {
		card.ContextLength = "Unknown"
	}
	if card.Architecture == nil {
		card.Architecture = map[string]any{}
	}
	if card.TopProvider == nil {
		card.TopProvider = map[string]any{}
	}
	return card
}
