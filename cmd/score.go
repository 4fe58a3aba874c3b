package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/pipeline"
	"github.com/user/riskscope/pkg/report"
	"github.com/user/riskscope/pkg/telemetry"
)

var scoreCmd = &cobra.Command{
	Use:   "score <normalized.json>",
	Short: "Score and rank a normalized findings file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctxOverride, err := resolveContext(cmd, cfg)
		if err != nil {
			return err
		}

		set, err := engine.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		metrics := telemetry.NewMetrics()
		res, err := pipeline.Score(cmd.Context(), set.Findings, pipeline.Options{
			Context:      ctxOverride,
			Organization: set.Organization,
			Metrics:      metrics,
		})
		if err != nil {
			return err
		}

		printRanked(cmd.OutOrStdout(), res.Organization, res.Traces)

		outDir := outputDir(cmd, cfg.OutputDir)
		paths, err := report.Generate(outDir, report.Input{
			RunID:        res.RunID,
			Organization: res.Organization,
			Context:      res.Context,
			Traces:       res.Traces,
		}, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Trace written to %s\n", paths[0])

		return writeMetrics(cmd, metrics)
	},
}

func outputDir(cmd *cobra.Command, def string) string {
	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		return dir
	}
	if def == "" {
		return "."
	}
	return filepath.Clean(def)
}

func writeMetrics(cmd *cobra.Command, m *telemetry.Metrics) error {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" {
		return nil
	}
	if err := m.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func init() {
	addContextFlags(scoreCmd)
	scoreCmd.Flags().String("out", "", "Output directory for trace.json (default from config)")
	scoreCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics here")
	rootCmd.AddCommand(scoreCmd)
}
