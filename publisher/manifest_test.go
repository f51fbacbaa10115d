package publisher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeResults(t *testing.T, w *Workspace, slug, model, body string) {
	t.Helper()
	writeArtifact(t, w, slug, model)
	require.NoError(t, os.WriteFile(filepath.Join(w.ModelDir(slug, model), ResultsFile), []byte(body), 0o644))
}

func TestScanManifest(t *testing.T) {
	root := t.TempDir()
	w := New(root, nil)
	slug, err := w.CreateDemo("Solar System", "planets")
	require.NoError(t, err)
	writeResults(t, w, slug, "openai/gpt-4-turbo", `{"tokens":{"total_tokens":500},"execution":{"duration_seconds":"1.500"}}`)
	writeArtifact(t, w, slug, "google/gemini-pro")
	writeResults(t, w, slug, "meta-llama/llama-3.1-8b-instruct", `not json`)

	_, err = w.CreateDemo("Ungenerated", "nothing yet")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(w.DemoDir("no-prompt"), "a", "b"), 0o755))
	writeArtifact(t, w, "no-prompt", "a/b")

	demos, err := w.ScanManifest(root)
	require.NoError(t, err)
	require.Len(t, demos, 1)

	d := demos[0]
	assert.Equal(t, "solar-system", d.Name)
	assert.Equal(t, "Solar System", d.Title)
	assert.Equal(t, "planets", d.Prompt)
	require.Len(t, d.Models, 3)

	assert.Equal(t, "google/gemini-pro", d.Models[0].Name)
	assert.Equal(t, "demos/solar-system/google/gemini-pro/index.html", d.Models[0].HTMLPath)
	assert.Nil(t, d.Models[0].Results)

	assert.Equal(t, "meta-llama/llama-3.1-8b-instruct", d.Models[1].Name)
	assert.Nil(t, d.Models[1].Results)

	assert.Equal(t, "openai/gpt-4-turbo", d.Models[2].Name)
	require.NotNil(t, d.Models[2].Results)
	assert.Equal(t, 500, d.Models[2].Results.Tokens.TotalTokens)
}

func TestWriteManifest(t *testing.T) {
	root := t.TempDir()
	w := New(root, nil)

	path, demos, err := w.WriteManifest(root)
	require.NoError(t, err)
	assert.Empty(t, demos)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	slug, err := w.CreateDemo("Clock", "tick")
	require.NoError(t, err)
	writeArtifact(t, w, slug, "openai/gpt-3.5-turbo")

	path, _, err = w.WriteManifest(root)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	models := got[0]["models"].([]any)
	first := models[0].(map[string]any)
	assert.Equal(t, "demos/clock/openai/gpt-3.5-turbo/index.html", first["htmlPath"])
	assert.Nil(t, first["results"])
}

func TestComputeRankings(t *testing.T) {
	results := func(body string) *Report {
		var r Report
		require.NoError(t, json.Unmarshal([]byte(body), &r))
		return &r
	}
	models := []ManifestModel{
		{Name: "a", Results: results(`{"tokens":{"total_tokens":300},"execution":{"duration_seconds":"4.000"},"cost":{"total_cost":0.02},"model_card":{"context_length":8000}}`)},
		{Name: "b", Results: results(`{"tokens":{"total_tokens":100},"execution":{"duration_seconds":"9.500"},"cost":{"total_cost":0.01},"model_card":{"context_length":200000}}`)},
		{Name: "c"},
		{Name: "d", Results: results(`{"tokens":{"total_tokens":200},"execution":{"duration_seconds":"1.250"},"cost":{"total_cost":0.03},"model_card":{"context_length":"Unknown"}}`)},
	}

	a := ComputeRankings(models, "a")
	assert.Equal(t, Rank{Rank: 3, Total: 3}, a.Tokens)
	assert.Equal(t, Rank{Rank: 2, Total: 3}, a.Duration)
	assert.Equal(t, Rank{Rank: 2, Total: 3}, a.Cost)
	assert.Equal(t, Rank{Rank: 2, Total: 3}, a.Context)

	b := ComputeRankings(models, "b")
	assert.Equal(t, 1, b.Tokens.Rank)
	assert.Equal(t, 3, b.Duration.Rank)
	assert.Equal(t, 1, b.Context.Rank)

	d := ComputeRankings(models, "d")
	assert.Equal(t, 1, d.Duration.Rank)
	assert.Equal(t, 3, d.Context.Rank)

	c := ComputeRankings(models, "c")
	assert.Equal(t, Rank{Rank: 0, Total: 3}, c.Tokens)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Solar System Explorer", Title("solar-system-explorer"))
	assert.Equal(t, "Clock", Title("clock"))
}
