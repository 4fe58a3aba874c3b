package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/engine"
)

var diffCmd = &cobra.Command{
	Use:   "diff <baseline.json> <current.json>",
	Short: "Compare two normalized findings files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, err := engine.LoadSnapshot(args[0])
		if err != nil {
			return err
		}
		current, err := engine.LoadSnapshot(args[1])
		if err != nil {
			return err
		}

		diff := current.CompareSnapshot(baseline)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(diff)
		}
		printDiff(cmd.OutOrStdout(), diff)
		return nil
	},
}

func init() {
	diffCmd.Flags().Bool("json", false, "Print the diff as JSON")
	rootCmd.AddCommand(diffCmd)
}
