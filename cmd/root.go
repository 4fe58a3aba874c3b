package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/config"
	"github.com/user/riskscope/pkg/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "riskscope",
	Short: "Context-aware vulnerability prioritization",
	Long: `riskscope normalizes vulnerability scan exports, keeps the High and Critical
findings, rescores them for your organization's context and ranks them, with
a full audit trace for every score and optional AI-written explanations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		closeLog = telemetry.InitLogger(telemetry.LoggerOptions{
			Debug:   DebugMode,
			JSON:    logJSON,
			LogFile: logFile,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

var (
	DebugMode bool
	cfgFile   string
	logFile   string
	logJSON   bool

	closeLog = func() {}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cobra.CheckErr(err)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.riskscope/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log to stderr as JSON")
}
