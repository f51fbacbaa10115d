package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_demo_generator/catalog"
	"ai_demo_generator/config"
	"ai_demo_generator/generator"
	"ai_demo_generator/logger"
	"ai_demo_generator/publisher"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	workspace *publisher.Workspace
	catalog   *catalog.Client
}

type rootOptions struct {
	configPath string
	envFile    string
	pages      string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	a := &app{}

	root := &cobra.Command{
		Use:           "ai-demo-cli",
		Short:         "AI Demo Generator - create and manage AI-powered demos",
		Version:       publisher.CLIVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to config.json")
	pf.StringVar(&opts.envFile, "env", ".env", "path to .env file")
	pf.StringVar(&opts.pages, "pages", "", "pages directory (overrides paths.pages)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newCreateDemoCmd(a),
		newGenerateCmd(a),
		newGenerateDemoCmd(a),
		newGenerateAllCmd(a),
		newGenerateViewerCmd(a),
		newListDemosCmd(a),
		newListModelsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) load(opts rootOptions) error {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	if opts.pages != "" {
		cfg.Paths.Pages = opts.pages
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log
	a.workspace = publisher.New(cfg.Paths.Pages, log)
	a.catalog = newCatalog(cfg, log)
	return nil
}

func (a *app) systemPrompt(override string) string {
	if override != "" {
		return override
	}
	if a.cfg.Generation.SystemPrompt != "" {
		return a.cfg.Generation.SystemPrompt
	}
	return generator.DefaultSystemPrompt
}

// overrideEndpoint replaces the configured API key and base URL for this run.
func (a *app) overrideEndpoint(apiKey, apiURL string) {
	if apiKey == "" && apiURL == "" {
		return
	}
	if apiKey != "" {
		a.cfg.OpenRouter.APIKey = apiKey
	}
	if apiURL != "" {
		a.cfg.OpenRouter.BaseURL = config.NormalizeBaseURL(apiURL)
	}
	a.catalog = newCatalog(a.cfg, a.logger)
}

func newCatalog(cfg *config.Config, log *zap.Logger) *catalog.Client {
	return catalog.New(catalog.Options{
		BaseURL:   cfg.OpenRouter.BaseURL,
		APIKey:    cfg.OpenRouter.APIKey,
		CacheFile: cfg.Catalog.CacheFile,
		MaxAge:    cfg.Catalog.MaxAge,
		Logger:    log.Named("catalog"),
	})
}

func buildLLM(cfg *config.Config, model string, mock bool) (generator.LLMClient, error) {
	if mock {
		return &generator.MockLLM{}, nil
	}
	if model == "" {
		model = cfg.OpenRouter.DefaultModel
	}
	return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
		Provider:    "openrouter",
		Model:       model,
		APIKey:      cfg.OpenRouter.APIKey,
		BaseURL:     cfg.OpenRouter.BaseURL,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		MaxRetries:  cfg.OpenRouter.MaxRetries,
		Timeout:     cfg.OpenRouter.Timeout,
	})
}

type generateOptions struct {
	force            bool
	mock             bool
	maxContinuations int
	system           string
}

// generation is one finished agent run with the catalog entry used for pricing.
type generation struct {
	artifact generator.Artifact
	card     *catalog.Model
	system   string
}

// run sends prompt to model through the agent, continuing truncated output.
func (a *app) run(ctx context.Context, log *zap.Logger, prompt, model string, opts generateOptions) (*generation, error) {
	llm, err := buildLLM(a.cfg, model, opts.mock)
	if err != nil {
		return nil, err
	}

	var card *catalog.Model
	if !opts.mock {
		card, err = a.catalog.Get(ctx, model)
		if err != nil {
			log.Warn("model card unavailable; cost will be reported as zero", zap.Error(err))
		} else if card == nil {
			log.Warn("model not found in catalog")
		}
	}

	maxContinuations := a.cfg.Generation.MaxContinuations
	if opts.maxContinuations > 0 {
		maxContinuations = opts.maxContinuations
	}
	system := a.systemPrompt(opts.system)
	agentOpts := []generator.AgentOption{
		generator.WithSystemPrompt(system),
		generator.WithMaxContinuations(maxContinuations),
		generator.WithLogger(log),
	}
	if card != nil {
		agentOpts = append(agentOpts, generator.WithContextLength(card.ContextLength))
	}
	agent, err := generator.NewAgent(llm, agentOpts...)
	if err != nil {
		return nil, err
	}

	art, err := agent.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &generation{artifact: art, card: card, system: system}, nil
}

// generate runs one demo against one model and publishes the artifact.
func (a *app) generate(ctx context.Context, demo, model string, opts generateOptions) (*publisher.Published, error) {
	if err := publisher.ValidateModel(model); err != nil {
		return nil, err
	}
	prompt, err := a.workspace.LoadPrompt(demo)
	if err != nil {
		return nil, err
	}
	if !opts.force && a.workspace.ArtifactExists(demo, model) {
		return nil, fmt.Errorf("%w: %s/%s (use --force to overwrite)", publisher.ErrArtifactExists, demo, model)
	}

	log := a.logger.With(zap.String("demo", demo), zap.String("model", model))
	log.Info("generating demo")
	gen, err := a.run(ctx, log, prompt, model, opts)
	if err != nil {
		return nil, fmt.Errorf("generate %s with %s: %w", demo, model, err)
	}

	return a.workspace.Publish(publisher.PublishParams{
		Demo:         demo,
		Model:        model,
		Prompt:       prompt,
		SystemPrompt: gen.system,
		Temperature:  a.cfg.Generation.Temperature,
		MaxTokens:    a.cfg.Generation.MaxTokens,
		Artifact:     gen.artifact,
		ModelCard:    gen.card,
		Force:        opts.force,
	})
}

// generateOnce runs an ad-hoc prompt outside the demo workspace and writes
// the extracted document to output.
func (a *app) generateOnce(ctx context.Context, prompt, model, output string, opts generateOptions) (publisher.Report, error) {
	if strings.TrimSpace(prompt) == "" {
		return publisher.Report{}, errors.New("prompt is required")
	}
	if output == "" {
		return publisher.Report{}, errors.New("output path is required")
	}

	log := a.logger.With(zap.String("model", model), zap.String("output", output))
	log.Info("generating")
	gen, err := a.run(ctx, log, prompt, model, opts)
	if err != nil {
		return publisher.Report{}, fmt.Errorf("generate with %s: %w", model, err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return publisher.Report{}, err
		}
	}
	if err := os.WriteFile(output, []byte(gen.artifact.HTML), 0o644); err != nil {
		return publisher.Report{}, err
	}
	return publisher.BuildReport(publisher.PublishParams{
		Model:        model,
		Prompt:       prompt,
		SystemPrompt: gen.system,
		Temperature:  a.cfg.Generation.Temperature,
		MaxTokens:    a.cfg.Generation.MaxTokens,
		Artifact:     gen.artifact,
		ModelCard:    gen.card,
	}, uuid.NewString(), time.Now()), nil
}

func isSkippable(err error) bool {
	return errors.Is(err, publisher.ErrArtifactExists) || errors.Is(err, publisher.ErrPromptMissing)
}
