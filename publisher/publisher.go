package publisher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"ai_demo_generator/catalog"
	"ai_demo_generator/generator"
)

// PublishParams describes one finished generation to be written to disk.
type PublishParams struct {
	Demo         string
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Artifact     generator.Artifact
	ModelCard    *catalog.Model
	Force        bool
}

// Published lists the files written for a generation.
type Published struct {
	Dir          string
	HTMLPath     string
	ResultsPath  string
	ResponsePath string
	Report       Report
}

// Publish writes index.html, results.json and RESPONSE.md into the model's
// directory under the demo.
func (w *Workspace) Publish(params PublishParams) (*Published, error) {
	if err := ValidateSlug(params.Demo); err != nil {
		return nil, err
	}
	if err := ValidateModel(params.Model); err != nil {
		return nil, err
	}
	if _, err := os.Stat(w.DemoDir(params.Demo)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDemoNotFound, params.Demo)
	}
	if !params.Force && w.ArtifactExists(params.Demo, params.Model) {
		return nil, fmt.Errorf("%w: %s/%s (use --force to overwrite)", ErrArtifactExists, params.Demo, params.Model)
	}

	dir := w.ModelDir(params.Demo, params.Model)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	now := w.now()
	report := BuildReport(params, uuid.NewString(), now)
	out := &Published{
		Dir:          dir,
		HTMLPath:     filepath.Join(dir, HTMLFile),
		ResultsPath:  filepath.Join(dir, ResultsFile),
		ResponsePath: filepath.Join(dir, ResponseFile),
		Report:       report,
	}

	if err := os.WriteFile(out.HTMLPath, []byte(params.Artifact.HTML), 0o644); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out.ResultsPath, data, 0o644); err != nil {
		return nil, err
	}
	transcript := Transcript(params.Model, params.Prompt, params.Artifact, report.Timestamp)
	if err := os.WriteFile(out.ResponsePath, []byte(transcript), 0o644); err != nil {
		return nil, err
	}

	w.logger.Info("artifact published",
		zap.String("demo", params.Demo),
		zap.String("model", params.Model),
		zap.String("dir", dir),
		zap.Int("total_tokens", report.Tokens.TotalTokens),
		zap.Float64("total_cost", report.Cost.TotalCost),
		zap.Bool("truncated", params.Artifact.Truncated),
	)
	return out, nil
}

// LoadTranscript reads the RESPONSE.md of a generated model.
func (w *Workspace) LoadTranscript(slug, model string) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	if err := ValidateModel(model); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(w.ModelDir(slug, model), ResponseFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s/%s", ErrDemoNotFound, slug, model)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Transcript renders the RESPONSE.md kept next to every artifact.
func Transcript(model, prompt string, art generator.Artifact, timestamp string) string {
	res := art.Result
	var b strings.Builder
	b.WriteString("# OpenRouter API Response\n\n")
	b.WriteString("## Metadata\n")
	fmt.Fprintf(&b, "- **Model**: %s\n", model)
	fmt.Fprintf(&b, "- **Timestamp**: %s\n", timestamp)
	fmt.Fprintf(&b, "- **Duration**: %.3f seconds\n", res.Elapsed.Seconds())
	if len(art.Attempts) > 0 {
		fmt.Fprintf(&b, "- **Continuations**: %d (%d failed)\n", len(art.Attempts), art.FailedAttempts())
	}
	if art.Truncated {
		b.WriteString("- **Truncated**: yes\n")
	}
	b.WriteString("\n## Token Usage\n")
	fmt.Fprintf(&b, "- **Prompt Tokens**: %s\n", countOrNA(res.Usage.PromptTokens))
	fmt.Fprintf(&b, "- **Completion Tokens**: %s\n", countOrNA(res.Usage.CompletionTokens))
	fmt.Fprintf(&b, "- **Total Tokens**: %s\n", countOrNA(res.Usage.TotalTokens))
	b.WriteString("\n## Prompt\n```\n")
	b.WriteString(prompt)
	b.WriteString("\n```\n\n## Response\n")
	b.WriteString(res.Text)
	b.WriteString("\n\n---\n")
	b.WriteString(generator.ReportTrailer)
	return b.String()
}

func countOrNA(n int) string {
	if n == 0 {
		return "N/A"
	}
	return fmt.Sprint(n)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts a transcript or README to HTML. Raw HTML in the
// source is omitted.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
