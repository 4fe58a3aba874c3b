package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/adk"
	"github.com/user/riskscope/pkg/archive"
	"github.com/user/riskscope/pkg/config"
	"github.com/user/riskscope/pkg/explain"
	"github.com/user/riskscope/pkg/pipeline"
	"github.com/user/riskscope/pkg/report"
	"github.com/user/riskscope/pkg/store"
	"github.com/user/riskscope/pkg/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run <inputs...>",
	Short: "Run the full pipeline and write the audit report",
	Long: `Normalize, filter, score, rank and trace the given scan exports, narrate
each finding, render the audit report and record the run in history.

Without --explain the narratives are built from the score trace alone.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		scoringCtx, err := resolveContext(cmd, cfg)
		if err != nil {
			return err
		}

		formatNames := cfg.Formats
		if cmd.Flags().Changed("formats") {
			formatNames, _ = cmd.Flags().GetStringSlice("formats")
		}
		formats, err := report.ParseFormats(formatNames)
		if err != nil {
			return err
		}

		in, err := archive.Load(args)
		if err != nil {
			return err
		}
		defer in.Cleanup()

		ctx := cmd.Context()
		explainer, closeProvider := buildExplainer(ctx, cmd, cfg)
		defer closeProvider()

		metrics := telemetry.NewMetrics()
		res, err := pipeline.Run(ctx, in.Documents, pipeline.Options{
			Context:   scoringCtx,
			Explainer: explainer,
			Metrics:   metrics,
		})
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		for _, e := range res.DocumentErrors {
			fmt.Fprintf(stderr, "  error: %v\n", e)
		}
		printRanked(cmd.OutOrStdout(), res.Organization, res.Traces)

		outDir := outputDir(cmd, cfg.OutputDir)
		paths, err := report.Generate(outDir, report.Input{
			RunID:        res.RunID,
			Organization: res.Organization,
			Context:      res.Context,
			Traces:       res.Traces,
			Explanations: res.Explanations,
			GeneratedAt:  time.Now(),
		}, formats)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(stderr, "Wrote %s\n", p)
		}

		if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
			if err := saveHistory(ctx, cfg.DBPath, res.Record(args)); err != nil {
				slog.Warn("run not recorded in history", "error", err)
			} else {
				fmt.Fprintf(stderr, "Run %s recorded\n", res.RunID)
			}
		}

		return writeMetrics(cmd, metrics)
	},
}

// buildExplainer returns a model-backed explainer with --explain, falling back
// to static narratives when the provider cannot be built.
func buildExplainer(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*explain.Explainer, func()) {
	concurrency := cfg.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	noop := func() {}

	if enabled, _ := cmd.Flags().GetBool("explain"); !enabled {
		return explain.New(nil, concurrency), noop
	}

	providerName := cfg.SelectedProvider
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		providerName = p
	}
	modelName := cfg.SelectedModel
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		modelName = m
	} else if providerName != cfg.SelectedProvider {
		modelName = ""
	}

	var opts []adk.Option
	if base := cfg.BaseURL(providerName); base != "" {
		opts = append(opts, adk.WithBaseURL(base))
	}

	provider, err := adk.NewProvider(ctx, providerName, cfg.GetAPIKey(providerName), modelName, opts...)
	if err != nil {
		slog.Warn("explanations fall back to static narratives", "provider", providerName, "error", err)
		return explain.New(nil, concurrency), noop
	}
	slog.Info("explaining findings", "provider", providerName, "model", modelName)

	closer := noop
	if c, ok := provider.(interface{ Close() }); ok {
		closer = c.Close
	}
	return explain.New(provider, concurrency), closer
}

func saveHistory(ctx context.Context, dbPath string, run *store.Run) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveRun(ctx, run)
}

func init() {
	addContextFlags(runCmd)
	runCmd.Flags().Bool("explain", false, "Ask the configured LLM provider to explain each finding")
	runCmd.Flags().String("provider", "", "Override the configured provider (gemini, openai, anthropic, ollama)")
	runCmd.Flags().String("model", "", "Override the configured model")
	runCmd.Flags().Int("concurrency", explain.DefaultConcurrency, "Parallel explanation requests")
	runCmd.Flags().StringSlice("formats", nil, "Report formats: md, html, pdf, json (default from config)")
	runCmd.Flags().String("out", "", "Output directory (default from config)")
	runCmd.Flags().Bool("no-history", false, "Do not record this run")
	runCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics here")
	rootCmd.AddCommand(runCmd)
}
