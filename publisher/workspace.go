package publisher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrDemoExists     = errors.New("demo already exists")
	ErrDemoNotFound   = errors.New("demo not found")
	ErrPromptMissing  = errors.New("PROMPT.md not found")
	ErrArtifactExists = errors.New("demo already generated for model")
	ErrInvalidName    = errors.New("invalid demo or model name")
)

const (
	DemosDir     = "demos"
	PromptFile   = "PROMPT.md"
	ReadmeFile   = "README.md"
	HTMLFile     = "index.html"
	ResultsFile  = "results.json"
	ResponseFile = "RESPONSE.md"
	ManifestFile = "demos.json"
)

var (
	slugStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
	slugDashRe  = regexp.MustCompile(`-+`)
)

// Slug turns a demo title into its directory name.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Workspace is the pages directory holding every demo and its generated
// artifacts: <root>/demos/<slug>/<model id>/.
type Workspace struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

func New(root string, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{root: root, logger: logger, now: time.Now}
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) DemosDir() string { return filepath.Join(w.root, DemosDir) }

func (w *Workspace) DemoDir(slug string) string { return filepath.Join(w.DemosDir(), slug) }

// ModelDir maps a model id to its directory. Ids with a vendor prefix
// ("openai/gpt-4") become nested directories.
func (w *Workspace) ModelDir(slug, model string) string {
	return filepath.Join(w.DemoDir(slug), filepath.FromSlash(model))
}

// ValidateSlug rejects demo names that are empty or would leave the demos directory.
func ValidateSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, slug)
	}
	return nil
}

// ValidateModel rejects model ids that are empty, absolute or contain
// empty, "." or ".." segments.
func ValidateModel(model string) error {
	if model == "" || strings.Contains(model, `\`) || strings.HasPrefix(model, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, model)
	}
	for _, part := range strings.Split(model, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidName, model)
		}
	}
	return nil
}

// CreateDemo scaffolds a new demo with its PROMPT.md and README.md and
// returns the slug.
func (w *Workspace) CreateDemo(title, prompt string) (string, error) {
	slug := Slug(title)
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("demo prompt is required")
	}
	dir := w.DemoDir(slug)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDemoExists, slug)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, PromptFile), []byte(prompt), 0o644); err != nil {
		return "", err
	}
	readme := fmt.Sprintf(`# %s

## Description
%s demo generated using AI models via OpenRouter API.

## Prompt
See `+"`PROMPT.md`"+` for the exact prompt used to generate this demo.

## Generated Models
Results will appear in model-specific subdirectories when generated.
`, title, title)
	if err := os.WriteFile(filepath.Join(dir, ReadmeFile), []byte(readme), 0o644); err != nil {
		return "", err
	}
	w.logger.Info("demo created", zap.String("demo", slug), zap.String("dir", dir))
	return slug, nil
}

// LoadPrompt reads the demo's PROMPT.md.
func (w *Workspace) LoadPrompt(slug string) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	info, err := os.Stat(w.DemoDir(slug))
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDemoNotFound, slug)
	}
	data, err := os.ReadFile(filepath.Join(w.DemoDir(slug), PromptFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPromptMissing, slug)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ArtifactExists reports whether index.html was already generated for the
// model. Invalid names never exist.
func (w *Workspace) ArtifactExists(slug, model string) bool {
	if ValidateSlug(slug) != nil || ValidateModel(model) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(w.ModelDir(slug, model), HTMLFile))
	return err == nil
}

// DemoSummary describes one demo directory for listings.
type DemoSummary struct {
	Slug          string
	HasPrompt     bool
	PromptPreview string
	Models        []string
}

// ListDemos returns every demo directory, sorted by slug. A missing demos
// directory yields an empty list.
func (w *Workspace) ListDemos() ([]DemoSummary, error) {
	entries, err := os.ReadDir(w.DemosDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []DemoSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s := DemoSummary{Slug: e.Name()}
		if data, err := os.ReadFile(filepath.Join(w.DemoDir(e.Name()), PromptFile)); err == nil {
			s.HasPrompt = true
			s.PromptPreview = digest(string(data), 80)
		}
		models, err := w.generatedModels(e.Name())
		if err != nil {
			return nil, err
		}
		s.Models = models
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// generatedModels walks the demo directory for index.html files; the path
// from the demo directory to each file's directory is the model id.
func (w *Workspace) generatedModels(slug string) ([]string, error) {
	demoDir := w.DemoDir(slug)
	var models []string
	err := filepath.WalkDir(demoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != HTMLFile {
			return nil
		}
		dir := filepath.Dir(path)
		if dir == demoDir {
			return nil
		}
		rel, err := filepath.Rel(demoDir, dir)
		if err != nil {
			return err
		}
		models = append(models, filepath.ToSlash(rel))
		return nil
	})
	return models, err
}

// digest compacts whitespace and cuts the text to limit runes.
func digest(text string, limit int) string {
	joined := strings.Join(strings.Fields(text), " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit]) + "..."
}
