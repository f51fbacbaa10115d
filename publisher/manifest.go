package publisher

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ManifestModel is one generated model of a demo in demos.json.
type ManifestModel struct {
	Name     string  `json:"name"`
	HTMLPath string  `json:"htmlPath"`
	Results  *Report `json:"results"`
}

// ManifestDemo is one entry of demos.json.
type ManifestDemo struct {
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Prompt string          `json:"prompt"`
	Models []ManifestModel `json:"models"`
}

var titleCaser = cases.Title(language.English)

// Title turns a slug back into a display title.
func Title(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}

// ScanManifest collects every demo that has a PROMPT.md and at least one
// generated index.html. HTML paths are made relative to relativeTo and use
// forward slashes.
func (w *Workspace) ScanManifest(relativeTo string) ([]ManifestDemo, error) {
	demos := []ManifestDemo{}
	summaries, err := w.ListDemos()
	if err != nil {
		w.logger.Warn("could not scan demos directory", zap.String("dir", w.DemosDir()), zap.Error(err))
		return demos, nil
	}
	for _, s := range summaries {
		if !s.HasPrompt || len(s.Models) == 0 {
			continue
		}
		prompt, err := os.ReadFile(filepath.Join(w.DemoDir(s.Slug), PromptFile))
		if err != nil {
			return nil, err
		}
		entry := ManifestDemo{
			Name:   s.Slug,
			Title:  Title(s.Slug),
			Prompt: string(prompt),
		}
		for _, model := range s.Models {
			dir := w.ModelDir(s.Slug, model)
			rel, err := filepath.Rel(relativeTo, filepath.Join(dir, HTMLFile))
			if err != nil {
				return nil, err
			}
			entry.Models = append(entry.Models, ManifestModel{
				Name:     model,
				HTMLPath: filepath.ToSlash(rel),
				Results:  w.readResults(dir),
			})
		}
		demos = append(demos, entry)
	}
	return demos, nil
}

func (w *Workspace) readResults(dir string) *Report {
	data, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("failed to read results", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		w.logger.Warn("invalid results.json", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	return &r
}

// WriteManifest scans the workspace and writes demos.json into outputDir.
func (w *Workspace) WriteManifest(outputDir string) (string, []ManifestDemo, error) {
	demos, err := w.ScanManifest(outputDir)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(demos, "", "  ")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(outputDir, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, err
	}
	w.logger.Info("manifest written", zap.String("path", path), zap.Int("demos", len(demos)))
	return path, demos, nil
}

// FindDemo returns the manifest entry with the given slug.
func FindDemo(demos []ManifestDemo, name string) (ManifestDemo, bool) {
	for _, d := range demos {
		if d.Name == name {
			return d, true
		}
	}
	return ManifestDemo{}, false
}

// Rank places a model among the models of a demo that have results.
// Rank is 0 when the model has no results.
type Rank struct {
	Rank  int `json:"rank"`
	Total int `json:"total"`
}

type Rankings struct {
	Tokens   Rank `json:"tokens"`
	Duration Rank `json:"duration"`
	Cost     Rank `json:"cost"`
	Context  Rank `json:"context"`
}

type metric struct {
	model string
	value float64
}

// ComputeRankings ranks tokens, duration and cost ascending and context
// length descending. Ties keep manifest order.
func ComputeRankings(models []ManifestModel, name string) Rankings {
	var tokens, duration, cost, context []metric
	for _, m := range models {
		if m.Results == nil {
			continue
		}
		r := m.Results
		tokens = append(tokens, metric{m.Name, float64(r.Tokens.TotalTokens)})
		duration = append(duration, metric{m.Name, parseNumber(r.Execution.DurationSeconds)})
		cost = append(cost, metric{m.Name, r.Cost.TotalCost})
		context = append(context, metric{m.Name, numberValue(r.ModelCard.ContextLength)})
	}
	asc := func(a, b metric) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		}
		return 0
	}
	desc := func(a, b metric) int { return asc(b, a) }

	return Rankings{
		Tokens:   rankOf(tokens, name, asc),
		Duration: rankOf(duration, name, asc),
		Cost:     rankOf(cost, name, asc),
		Context:  rankOf(context, name, desc),
	}
}

func rankOf(ms []metric, name string, cmp func(a, b metric) int) Rank {
	slices.SortStableFunc(ms, cmp)
	r := Rank{Total: len(ms)}
	for i, m := range ms {
		if m.model == name {
			r.Rank = i + 1
			break
		}
	}
	return r
}

func numberValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		return parseNumber(n)
	}
	return 0
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
