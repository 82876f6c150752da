package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/review"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitUsageError    = 2
	ExitMalformedDiff = 3
	ExitRuntimeError  = 4
)

var flagLogLevel string

var rootCmd = &cobra.Command{
	Use:   "rbdiff",
	Short: "Parse and store git diffs for review",
	Long: "rbdiff parses unified git diffs into per-file changes, optionally stores them " +
		"as diff sets, and renders summaries with deterministic exit codes.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(flagLogLevel)
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(gitCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// setupLogging installs a text slog handler on stderr. An empty level falls
// back to the configured logLevel.
func setupLogging(level string) {
	cfg := config.Config{LogLevel: level}
	if level == "" {
		if loaded, err := config.Load(nil); err == nil {
			cfg = loaded
		}
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(h))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print rbdiff version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rbdiff version %s\n", review.Version)
	},
}
