package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/gitctx"
	"github.com/reviewboard/rbdiff/internal/review"
	"github.com/reviewboard/rbdiff/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-parse a diff file each time it changes",
	Long: "Watch a diff file and print a fresh report every time it is written. " +
		"Parse errors are reported and watching continues; stop with Ctrl-C.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		opts := watch.Options{
			Debounce:     flagDebounce,
			MaxDiffBytes: cfg.MaxDiffBytes,
			Parse:        diffparser.Options{KeepModeChanges: cfg.KeepModeChanges},
		}
		err = watch.Run(cmd.Context(), args[0], opts, func(u watch.Update) {
			if u.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", u.At.Format(time.TimeOnly), u.Err)
				return
			}
			include, exclude := filterPatterns(cfg)
			u.Result.Files = gitctx.FilterChanges(u.Result.Files, include, exclude)
			p := &parsed{
				result: u.Result,
				inputs: review.InputInfo{
					Mode:            "watch",
					Range:           u.Path,
					PathsIncluded:   include,
					PathsExcluded:   exclude,
					KeepModeChanges: cfg.KeepModeChanges,
				},
			}
			if err := renderReport(p, gitctx.RepoMeta{}, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		})
		if err != nil {
			fail(err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "Quiet period after a write before re-parsing")
	watchCmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	watchCmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	watchCmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	watchCmd.Flags().StringVar(&flagFormat, "format", "", "Output format")
	watchCmd.Flags().StringVar(&flagOut, "out", "", "Output file path, rewritten on every change (default: stdout)")
	watchCmd.Flags().BoolVar(&flagKeepModeChanges, "keep-mode-changes", false, "Keep sections that only change the file mode")
	watchCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}
