package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/gitctx"
)

var flagVerifyJSON bool

var gitVerifyCmd = &cobra.Command{
	Use:   "verify <file|->",
	Short: "Check that every file a diff modifies exists in this repository",
	Long: `Parse a diff and look up the origin revision of each changed file with
git cat-file. New files are skipped. The diff must carry full blob IDs, as
produced by git diff --full-index.

Exits 3 when a revision is abbreviated and 4 when a file is missing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		src, err := gitctx.ReadDiff(args[0], buildDiffOpts(cfg))
		if err != nil {
			fail(err)
			return nil
		}
		res, err := diffparser.ParseWithOptions(src.Diff, diffparser.Options{KeepModeChanges: cfg.KeepModeChanges})
		if err != nil {
			fail(err)
			return nil
		}
		include, exclude := filterPatterns(cfg)
		results, err := gitctx.VerifyChanges(gitctx.FilterChanges(res.Files, include, exclude))
		if err != nil {
			fail(err)
			return nil
		}

		var invalid, missing int
		for _, v := range results {
			switch v.Status {
			case gitctx.VerifyInvalidRevision:
				invalid++
			case gitctx.VerifyMissing:
				missing++
			}
		}
		slog.Debug("[DEBUG-VERIFY] checked files", "count", len(results), "missing", missing, "invalid", invalid)

		out := cmd.OutOrStdout()
		if flagVerifyJSON {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				fail(err)
				return nil
			}
			fmt.Fprintln(out, string(data))
		} else {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STATUS\tREVISION\tPATH")
			for _, v := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Status, shortSHA(v.Revision), v.Path)
			}
			tw.Flush()
		}

		switch {
		case invalid > 0:
			fail(fmt.Errorf("%d file(s): %w", invalid, gitctx.ErrInvalidRevision))
		case missing > 0:
			fail(fmt.Errorf("%d file(s): %w", missing, gitctx.ErrFileNotFound))
		}
		return nil
	},
}

func init() {
	gitCmd.AddCommand(gitVerifyCmd)

	f := gitVerifyCmd.Flags()
	f.StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	f.StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	f.IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	f.BoolVar(&flagKeepModeChanges, "keep-mode-changes", false, "Keep sections that only change the file mode")
	f.BoolVar(&flagVerifyJSON, "json", false, "Print results as JSON")
}
