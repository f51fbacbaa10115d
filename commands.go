package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ai_demo_generator/publisher"
	"ai_demo_generator/server"
)

func newCreateDemoCmd(a *app) *cobra.Command {
	var title, prompt string
	cmd := &cobra.Command{
		Use:   "create-demo",
		Short: "Create a new demo with title and prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, err := a.workspace.CreateDemo(title, prompt)
			if err != nil {
				return fmt.Errorf("failed to create demo: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Demo created: %s (%s)\n", title, slug)
			fmt.Fprintf(out, "Location: %s\n", a.workspace.DemoDir(slug))
			fmt.Fprintf(out, "\nNext step: generate the demo with a model:\n  ai-demo-cli generate-demo -d %s -m %s\n",
				slug, a.cfg.OpenRouter.DefaultModel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "demo title")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "demo prompt text")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var prompt, output, model, apiKey, apiURL string
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one HTML page from a prompt without a demo directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.overrideEndpoint(apiKey, apiURL)
			if model == "" {
				model = a.cfg.OpenRouter.DefaultModel
			}
			report, err := a.generateOnce(cmd.Context(), prompt, model, output, opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "HTML written to: %s\n", output)
			printReport(w, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt describing the page to generate")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the generated HTML to")
	cmd.Flags().StringVarP(&model, "model", "m", "", "OpenRouter model id (default from config)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "system prompt (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenRouter API key (overrides OPENROUTER_API_KEY)")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "OpenRouter API URL (overrides OPENROUTER_API_URL)")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "use the offline mock model")
	cmd.Flags().IntVar(&opts.maxContinuations, "max-continuations", 0, "continuation attempts for truncated output (default from config)")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newGenerateDemoCmd(a *app) *cobra.Command {
	var demo, model string
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate-demo",
		Short: "Generate an HTML demo with an OpenRouter model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = a.cfg.OpenRouter.DefaultModel
			}
			out, err := a.generate(cmd.Context(), demo, model, opts)
			if errors.Is(err, publisher.ErrDemoNotFound) {
				if demos, listErr := a.workspace.ListDemos(); listErr == nil && len(demos) > 0 {
					names := make([]string, 0, len(demos))
					for _, d := range demos {
						names = append(names, d.Slug)
					}
					return fmt.Errorf("%w (available: %s)", err, strings.Join(names, ", "))
				}
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Demo generated: %s\n", out.HTMLPath)
			fmt.Fprintf(w, "Metrics: %s\n", out.ResultsPath)
			fmt.Fprintf(w, "Response: %s\n", out.ResponsePath)
			printReport(w, out.Report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&demo, "demo", "d", "", "demo slug (directory name)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "OpenRouter model id, e.g. openai/gpt-3.5-turbo")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing generation")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "use the offline mock model")
	cmd.Flags().IntVar(&opts.maxContinuations, "max-continuations", 0, "continuation attempts for truncated output (default from config)")
	_ = cmd.MarkFlagRequired("demo")
	return cmd
}

func newGenerateAllCmd(a *app) *cobra.Command {
	var models []string
	var concurrency int
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate-all [demo]",
		Short: "Generate every demo (or one demo) with a batch of models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(models) == 0 {
				models = a.cfg.Generation.Models
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Generation.Concurrency
			}

			var demos []string
			if len(args) == 1 {
				demos = []string{args[0]}
			} else {
				summaries, err := a.workspace.ListDemos()
				if err != nil {
					return err
				}
				for _, s := range summaries {
					if s.HasPrompt {
						demos = append(demos, s.Slug)
					}
				}
			}
			if len(demos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No demos found. Create one with create-demo first.")
				return nil
			}

			var (
				mu                         sync.Mutex
				generated, skipped, failed int
			)
			var g errgroup.Group
			g.SetLimit(concurrency)
			start := time.Now()
			for _, demo := range demos {
				for _, model := range models {
					g.Go(func() error {
						_, err := a.generate(cmd.Context(), demo, model, opts)
						mu.Lock()
						defer mu.Unlock()
						switch {
						case err == nil:
							generated++
						case isSkippable(err):
							skipped++
							a.logger.Info("skipping", zap.String("demo", demo), zap.String("model", model), zap.Error(err))
						default:
							failed++
							a.logger.Error("generation failed", zap.String("demo", demo), zap.String("model", model), zap.Error(err))
						}
						return nil
					})
				}
			}
			_ = g.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "Batch finished in %s: %d generated, %d skipped, %d failed\n",
				time.Since(start).Round(time.Second), generated, skipped, failed)
			if failed > 0 && generated == 0 && skipped == 0 {
				return errors.New("every generation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&models, "models", nil, "comma separated model ids (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel generations (default from config)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite existing generations")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "use the offline mock model")
	cmd.Flags().IntVar(&opts.maxContinuations, "max-continuations", 0, "continuation attempts for truncated output (default from config)")
	return cmd
}

func newGenerateViewerCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate-viewer",
		Short: "Generate demos.json for the viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.workspace.Root()
			}
			path, demos, err := a.workspace.WriteManifest(output)
			if err != nil {
				return fmt.Errorf("failed to generate viewer data: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Generated %s with %d demo(s)\n", path, len(demos))
			if len(demos) == 0 {
				fmt.Fprintln(w, "Tip: create a demo with create-demo and generate it with generate-demo.")
			} else {
				fmt.Fprintln(w, "Run `ai-demo-cli serve` to explore the demos.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory for demos.json (default: pages directory)")
	return cmd
}

func newListDemosCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-demos",
		Short: "List all available demos",
		RunE: func(cmd *cobra.Command, args []string) error {
			demos, err := a.workspace.ListDemos()
			if err != nil {
				return fmt.Errorf("failed to list demos: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(demos) == 0 {
				fmt.Fprintln(w, "No demos found.")
				fmt.Fprintln(w, `Create one with: ai-demo-cli create-demo -t "Demo Title" -p "Your prompt..."`)
				return nil
			}
			for _, d := range demos {
				fmt.Fprintf(w, "%s\n", d.Slug)
				if d.HasPrompt {
					fmt.Fprintf(w, "  prompt: %s\n", d.PromptPreview)
				} else {
					fmt.Fprintln(w, "  prompt: missing PROMPT.md")
				}
				fmt.Fprintf(w, "  %d model(s) generated\n", len(d.Models))
				if len(d.Models) > 0 {
					fmt.Fprintf(w, "  models: %s\n", strings.Join(d.Models, ", "))
				}
			}
			return nil
		},
	}
}

func newListModelsCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List models available on OpenRouter",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.catalog.List(cmd.Context(), !refresh)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, m := range models {
				fmt.Fprintf(w, "%-50s %-40s ctx=%-8d prompt=%s completion=%s\n",
					m.ID, m.Name, m.ContextLength, m.Pricing.Prompt, m.Pricing.Completion)
			}
			fmt.Fprintf(w, "%d model(s); full list at https://openrouter.ai/models\n", len(models))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached catalog")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv, err := server.New(a.workspace, a.logger.Named("http"))
			if err != nil {
				return err
			}
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			a.logger.Info("starting viewer", zap.String("addr", addr), zap.String("pages", filepath.Clean(a.workspace.Root())))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				a.logger.Info("shutting down viewer")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func printReport(w io.Writer, r publisher.Report) {
	fmt.Fprintf(w, "Model: %s (requested %s)\n", r.Execution.ModelUsed, r.Execution.ModelRequested)
	fmt.Fprintf(w, "Duration: %ss\n", r.Execution.DurationSeconds)
	fmt.Fprintf(w, "Tokens: %d prompt, %d completion, %d total\n",
		r.Tokens.PromptTokens, r.Tokens.CompletionTokens, r.Tokens.TotalTokens)
	if r.Cost.TotalCost > 0 {
		fmt.Fprintf(w, "Total cost: $%.6f\n", r.Cost.TotalCost)
	}
	if r.Continuation.Attempts > 0 {
		fmt.Fprintf(w, "Continuations: %d (%d failed)\n", r.Continuation.Attempts, r.Continuation.Failed)
	}
	if r.Continuation.Truncated {
		fmt.Fprintln(w, "Warning: output still looks truncated")
	}
}
