package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	paramsFile string
	logLevel   string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Trading strategy performance analytics",
	Long: `Strategy Analytics CLI

거래 내역(closed trades)에서 equity curve, 성과 지표, drawdown,
rolling window, 분포, 데이터 품질 리포트를 계산합니다.

Usage:
  go run ./cmd/analytics [command]

Examples:
  go run ./cmd/analytics report --file trades.json
  go run ./cmd/analytics report --strategy ES --output json
  go run ./cmd/analytics validate --file trades.json
  go run ./cmd/analytics serve
  go run ./cmd/analytics worker`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logLevel = "debug"
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT/SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "YAML parameter profile (overrides ANALYTICS_PARAMS_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
