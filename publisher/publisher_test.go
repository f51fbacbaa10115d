package publisher

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_demo_generator/catalog"
	"ai_demo_generator/generator"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func sampleArtifact() generator.Artifact {
	return generator.Artifact{
		HTML: "<!DOCTYPE html><html><body>clock</body></html>",
		Result: generator.Completion{
			Text:    "```html\n<!DOCTYPE html><html><body>clock</body></html>\n```",
			Usage:   generator.TokenUsage{PromptTokens: 1000, CompletionTokens: 2000, TotalTokens: 3000},
			Elapsed: 2345 * time.Millisecond,
			Model:   "openai/gpt-4-turbo-2024-04-09",
			ID:      "gen-42",
			Created: 1714566600,
		},
		Attempts: []generator.Attempt{
			{Number: 1, Succeeded: true},
			{Number: 2, Succeeded: false, Err: errors.New("timeout")},
		},
	}
}

func sampleCard() *catalog.Model {
	return &catalog.Model{
		ID:            "openai/gpt-4-turbo",
		Name:          "GPT-4 Turbo",
		Description:   "fast",
		ContextLength: 128000,
		Pricing:       catalog.Pricing{Prompt: "0.00001", Completion: "0.00003"},
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(PublishParams{
		Demo:         "clock",
		Model:        "openai/gpt-4-turbo",
		Prompt:       "make a clock",
		SystemPrompt: "be good",
		Temperature:  0.7,
		MaxTokens:    2000,
		Artifact:     sampleArtifact(),
		ModelCard:    sampleCard(),
	}, "run-1", fixedNow)

	assert.Equal(t, "2024-05-01T12:30:00.000Z", r.Timestamp)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "2.345", r.Execution.DurationSeconds)
	assert.Equal(t, "openai/gpt-4-turbo-2024-04-09", r.Execution.ModelUsed)
	assert.Equal(t, "openai/gpt-4-turbo", r.Execution.ModelRequested)
	assert.Equal(t, 3000, r.Tokens.TotalTokens)
	assert.Equal(t, "USD", r.Cost.Currency)
	assert.InDelta(t, 0.01, r.Cost.PromptCost, 1e-12)
	assert.InDelta(t, 0.06, r.Cost.CompletionCost, 1e-12)
	assert.InDelta(t, 0.07, r.Cost.TotalCost, 1e-12)
	assert.Equal(t, "GPT-4 Turbo", r.ModelCard.Name)
	assert.Equal(t, 128000, r.ModelCard.ContextLength)
	require.NotNil(t, r.Request.SystemPrompt)
	assert.Equal(t, "be good", *r.Request.SystemPrompt)
	assert.Equal(t, "gen-42", r.ResponseMetadata.ID)
	assert.Equal(t, "chat.completion", r.ResponseMetadata.Object)
	assert.Equal(t, ContinuationInfo{Attempts: 2, Failed: 1}, r.Continuation)
	assert.Equal(t, DemoInfo{DemoName: "clock", GeneratedAt: r.Timestamp, CLIVersion: CLIVersion}, r.DemoInfo)
	assert.Contains(t, r.RawResponse, "```html")
}

func TestBuildReportUnknownModel(t *testing.T) {
	art := sampleArtifact()
	art.Result.Model = ""
	r := BuildReport(PublishParams{Demo: "clock", Model: "x/y", Artifact: art}, "run", fixedNow)

	assert.Equal(t, "x/y", r.Execution.ModelUsed)
	assert.Equal(t, "x/y", r.ModelCard.ID)
	assert.Equal(t, "Unknown", r.ModelCard.Name)
	assert.Equal(t, "Unknown", r.ModelCard.ContextLength)
	assert.Nil(t, r.Request.SystemPrompt)
	assert.Zero(t, r.Cost.TotalCost)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"system_prompt":null`)
	assert.Contains(t, string(data), `"pricing":{}`)
}

func TestTranscriptEndsWithTrailer(t *testing.T) {
	md := Transcript("openai/gpt-4", "make a clock", sampleArtifact(), "2024-05-01T12:30:00.000Z")

	assert.True(t, strings.HasSuffix(md, "---\n"+generator.ReportTrailer))
	assert.Contains(t, md, "- **Model**: openai/gpt-4")
	assert.Contains(t, md, "- **Duration**: 2.345 seconds")
	assert.Contains(t, md, "- **Continuations**: 2 (1 failed)")
	assert.Contains(t, md, "- **Total Tokens**: 3000")
	assert.Contains(t, md, "```\nmake a clock\n```")
	assert.True(t, generator.IsTruncated(md))

	empty := Transcript("m", "p", generator.Artifact{}, "ts")
	assert.Contains(t, empty, "- **Prompt Tokens**: N/A")
}

func TestPublish(t *testing.T) {
	w := New(t.TempDir(), nil)
	w.now = func() time.Time { return fixedNow }
	slug, err := w.CreateDemo("Clock", "make a clock")
	require.NoError(t, err)

	params := PublishParams{
		Demo:      slug,
		Model:     "openai/gpt-4-turbo",
		Prompt:    "make a clock",
		Artifact:  sampleArtifact(),
		ModelCard: sampleCard(),
	}
	out, err := w.Publish(params)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(w.DemoDir(slug), "openai", "gpt-4-turbo"), out.Dir)
	html, err := os.ReadFile(out.HTMLPath)
	require.NoError(t, err)
	assert.Equal(t, params.Artifact.HTML, string(html))

	data, err := os.ReadFile(out.ResultsPath)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3000, report.Tokens.TotalTokens)
	assert.InDelta(t, 0.07, report.Cost.TotalCost, 1e-12)

	md, err := os.ReadFile(out.ResponsePath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(md), generator.ReportTrailer))

	_, err = w.Publish(params)
	assert.ErrorIs(t, err, ErrArtifactExists)

	params.Force = true
	_, err = w.Publish(params)
	assert.NoError(t, err)

	params.Demo = "missing"
	_, err = w.Publish(params)
	assert.ErrorIs(t, err, ErrDemoNotFound)

	params.Demo = slug
	params.Model = "../escape"
	_, err = w.Publish(params)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}

func TestLoadTranscript(t *testing.T) {
	w := New(t.TempDir(), nil)
	slug, err := w.CreateDemo("Clock", "make a clock")
	require.NoError(t, err)

	_, err = w.LoadTranscript(slug, "openai/gpt-4")
	assert.ErrorIs(t, err, ErrDemoNotFound)

	_, err = w.Publish(PublishParams{Demo: slug, Model: "openai/gpt-4", Prompt: "make a clock", Artifact: sampleArtifact()})
	require.NoError(t, err)

	md, err := w.LoadTranscript(slug, "openai/gpt-4")
	require.NoError(t, err)
	assert.Contains(t, md, "# OpenRouter API Response")

	_, err = w.LoadTranscript(slug, "../../x")
	assert.ErrorIs(t, err, ErrInvalidName)
}
