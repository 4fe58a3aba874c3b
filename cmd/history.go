package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/report"
	"github.com/user/riskscope/pkg/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

func openHistory() (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.Open(cfg.DBPath)
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		s, err := openHistory()
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run (id prefixes are accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHistory()
		if err != nil {
			return err
		}
		defer s.Close()

		run, err := s.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run %s at %s\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		printRanked(cmd.OutOrStdout(), run.Organization, run.Traces)

		if dir, _ := cmd.Flags().GetString("report"); dir != "" {
			paths, err := report.Generate(dir, report.Input{
				RunID:        run.ID,
				Organization: run.Organization,
				Context:      run.Context,
				Traces:       run.Traces,
				Explanations: run.Explanations,
				GeneratedAt:  run.CreatedAt,
			}, []report.Format{report.FormatMarkdown, report.FormatHTML, report.FormatPDF})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", p)
			}
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	historyShowCmd.Flags().Bool("json", false, "Print the stored run as JSON")
	historyShowCmd.Flags().String("report", "", "Re-render the audit report into this directory")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
