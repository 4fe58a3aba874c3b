package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/archive"
	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <inputs...>",
	Short: "Parse scan exports into the normalized findings file",
	Long: `Parse .zip archives, directories and .xml/.json scan exports, keep the High
and Critical findings, and write them as a normalized findings file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		in, err := archive.Load(args)
		if err != nil {
			return err
		}
		defer in.Cleanup()

		res := normalize.Normalize(in.Documents)
		kept, dropped := engine.FilterSeverity(res.Findings)

		set := engine.NewFindingSet(kept)
		if len(kept) == 0 {
			set.Organization = res.Organization()
		}

		var w io.Writer = cmd.OutOrStdout()
		if out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := set.Encode(w); err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "Parsed %d/%d documents, %d findings (%d kept, %d below High)\n",
			res.Documents, len(in.Documents), len(res.Findings), len(kept), dropped)
		for _, e := range res.Errors {
			fmt.Fprintf(stderr, "  error: %v\n", e)
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(stderr, "  skipped: %v\n", s)
		}
		if out != "-" {
			fmt.Fprintf(stderr, "Normalized findings written to %s\n", out)
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringP("output", "o", "normalized.json", "Output file, or - for stdout")
	rootCmd.AddCommand(normalizeCmd)
}
