package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/gitctx"
)

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Parse diffs taken from the local git repository",
	Long:  "Parse diffs produced by git in the current repository. Use subcommands to choose what to diff.",
}

// gitDiffCommand builds a subcommand that fetches one diff with fetch and
// runs it through the parse pipeline.
func gitDiffCommand(use, short string, posArgs cobra.PositionalArgs, fetch func(args []string, opts gitctx.DiffOptions) (gitctx.DiffResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  posArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(buildOverrides())
			if err != nil {
				return err
			}
			start := time.Now()
			src, err := fetch(args, buildDiffOpts(cfg))
			if err != nil {
				fail(err)
				return nil
			}
			runDiff(cmd.Context(), src, cfg, time.Since(start))
			return nil
		},
	}
}

var gitUnstagedCmd = gitDiffCommand("unstaged", "Parse unstaged changes (working tree vs index)", cobra.NoArgs,
	func(_ []string, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
		return gitctx.Unstaged(opts)
	})

var gitStagedCmd = gitDiffCommand("staged", "Parse staged changes (index vs HEAD)", cobra.NoArgs,
	func(_ []string, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
		return gitctx.Staged(opts)
	})

var flagParent string

var gitCommitCmd = gitDiffCommand("commit <sha>", "Parse a specific commit", cobra.ExactArgs(1),
	func(args []string, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
		return gitctx.Commit(args[0], flagParent, opts)
	})

var flagMergeBase bool

var gitRangeCmd = gitDiffCommand("range <revRange>", "Parse a revision range (e.g., origin/main..HEAD)", cobra.ExactArgs(1),
	func(args []string, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
		return gitctx.Range(args[0], flagMergeBase, opts)
	})

var gitCommitsCmd = &cobra.Command{
	Use:   "commits <revRange>",
	Short: "Parse every commit in a range, one diff set per commit with --store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		commits, err := gitctx.ListCommits(args[0])
		if err != nil {
			fail(err)
			return nil
		}
		if len(commits) == 0 {
			fmt.Fprintf(os.Stderr, "No commits in %s\n", args[0])
			return nil
		}

		out := cmd.OutOrStdout()
		opts := buildDiffOpts(cfg)
		for _, c := range commits {
			start := time.Now()
			src, err := gitctx.Commit(c.SHA, "", opts)
			if err != nil {
				fail(fmt.Errorf("commit %s: %w", shortSHA(c.SHA), err))
				return nil
			}
			name := flagName
			if name == "" {
				name = c.Subject
			}
			p, err := parseDiff(cmd.Context(), src, cfg, name, time.Since(start))
			if err != nil {
				fail(fmt.Errorf("commit %s: %w", shortSHA(c.SHA), err))
				return nil
			}

			var ins, del int
			for _, fc := range p.result.Files {
				ins += fc.InsertCount
				del += fc.DeleteCount
			}
			id := "-"
			if p.diffSet != nil {
				id = p.diffSet.ID
			}
			fmt.Fprintf(out, "%s  %s  %d files  +%d -%d  %s\n",
				shortSHA(c.SHA), id, len(p.result.Files), ins, del, c.Subject)
		}
		return nil
	},
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func init() {
	gitCmd.AddCommand(gitUnstagedCmd)
	gitCmd.AddCommand(gitStagedCmd)
	gitCmd.AddCommand(gitCommitCmd)
	gitCmd.AddCommand(gitRangeCmd)
	gitCmd.AddCommand(gitCommitsCmd)

	for _, cmd := range []*cobra.Command{
		gitUnstagedCmd,
		gitStagedCmd,
		gitCommitCmd,
		gitRangeCmd,
		gitCommitsCmd,
	} {
		addGitFlags(cmd)
	}

	gitCommitCmd.Flags().StringVar(&flagParent, "parent", "", "Override parent SHA (for merge commits)")
	gitRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
}
