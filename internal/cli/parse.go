package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/cache"
	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/diffstore"
	"github.com/reviewboard/rbdiff/internal/gitctx"
	"github.com/reviewboard/rbdiff/internal/output"
	"github.com/reviewboard/rbdiff/internal/redact"
	"github.com/reviewboard/rbdiff/internal/review"
)

// Shared parse flags
var (
	flagPaths           string
	flagExclude         string
	flagContextLines    int
	flagMaxDiffBytes    int
	flagFormat          string
	flagOut             string
	flagStore           bool
	flagName            string
	flagKeepModeChanges bool
	flagNoRedact        bool
	flagNoCache         bool
)

func addParseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format ("+strings.Join(output.Formats, ", ")+")")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flagStore, "store", false, "Save the parsed diff as a diff set")
	cmd.Flags().StringVar(&flagName, "name", "", "Name for the stored diff set")
	cmd.Flags().BoolVar(&flagKeepModeChanges, "keep-mode-changes", false, "Keep sections that only change the file mode")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the parse cache")
}

func addGitFlags(cmd *cobra.Command) {
	addParseFlags(cmd)
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagContextLines > 0 {
		m["contextLines"] = strconv.Itoa(flagContextLines)
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = strconv.Itoa(flagMaxDiffBytes)
	}
	if flagKeepModeChanges {
		m["keepModeChanges"] = "true"
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	return m
}

func buildDiffOpts(cfg config.Config) gitctx.DiffOptions {
	opts := gitctx.DiffOptions{
		ContextLines: cfg.ContextLines,
		MaxDiffBytes: cfg.MaxDiffBytes,
		Include:      cfg.Include,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	return opts
}

// filterPatterns returns the include and exclude globs applied to parsed
// changes. --paths replaces the configured includes; --exclude adds to the
// configured excludes.
func filterPatterns(cfg config.Config) (include, exclude []string) {
	include = cfg.Include
	if flagPaths != "" {
		include = splitComma(flagPaths)
	}
	exclude = cfg.Exclude
	if flagExclude != "" {
		exclude = append(append([]string(nil), exclude...), splitComma(flagExclude)...)
	}
	return include, exclude
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// exitCodeFor maps an error from the parse pipeline to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, diffparser.ErrMalformedDiff), errors.Is(err, diffparser.ErrEncoding),
		errors.Is(err, gitctx.ErrInvalidRevision):
		return ExitMalformedDiff
	default:
		return ExitRuntimeError
	}
}

// fail reports err on stderr and records the matching exit code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = exitCodeFor(err)
}

// parsed is a diff run through the parser, ready to report on.
type parsed struct {
	result  *diffparser.Result
	inputs  review.InputInfo
	timing  review.Timing
	diffSet *diffstore.DiffSet
}

// parseDiff parses src, going through the cache, applies the path filters
// and stores the result as a diff set named name when --store is set.
func parseDiff(ctx context.Context, src gitctx.DiffResult, cfg config.Config, name string, readDur time.Duration) (*parsed, error) {
	start := time.Now()
	opts := diffparser.Options{KeepModeChanges: cfg.KeepModeChanges}

	c := openCache(cfg)
	key := cache.BuildCacheKey(opts, src.Diff)
	var res *diffparser.Result
	var cached bool
	if c != nil {
		res, cached = c.GetResult(key)
	}
	if !cached {
		var err error
		res, err = diffparser.ParseWithOptions(src.Diff, opts)
		if err != nil {
			return nil, err
		}
		if c != nil {
			if err := c.PutResult(key, res); err != nil {
				slog.Warn("[WARN-CACHE] could not cache parse result", "error", err)
			}
		}
	}
	parseDur := time.Since(start)

	include, exclude := filterPatterns(cfg)
	total := len(res.Files)
	res.Files = gitctx.FilterChanges(res.Files, include, exclude)
	if res.Files == nil {
		res.Files = []diffparser.FileChange{}
	}
	slog.Debug("[DEBUG-PARSE] parsed diff", "mode", src.Mode, "files", total, "kept", len(res.Files), "cached", cached)

	p := &parsed{
		result: res,
		inputs: review.InputInfo{
			Mode:            src.Mode,
			Range:           src.Range,
			PathsIncluded:   include,
			PathsExcluded:   exclude,
			KeepModeChanges: cfg.KeepModeChanges,
			Cached:          cached,
		},
	}

	if flagStore {
		ds, err := saveDiffSet(ctx, cfg, name, res)
		if err != nil {
			return nil, err
		}
		p.diffSet = &ds
		p.inputs.DiffSetID = ds.ID
	}

	p.timing = review.Timing{
		ReadMs:  readDur.Milliseconds(),
		ParseMs: parseDur.Milliseconds(),
		TotalMs: (readDur + time.Since(start)).Milliseconds(),
	}
	return p, nil
}

func openCache(cfg config.Config) *cache.Cache {
	c, err := cache.New(cfg.Cache.Enabled && !flagNoCache, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		slog.Warn("[WARN-CACHE] cache unavailable", "error", err)
		return nil
	}
	return c
}

func openStore(cfg config.Config) (*diffstore.Store, error) {
	path, err := cfg.ResolvedStorePath()
	if err != nil {
		return nil, err
	}
	s, err := diffstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func saveDiffSet(ctx context.Context, cfg config.Config, name string, res *diffparser.Result) (diffstore.DiffSet, error) {
	s, err := openStore(cfg)
	if err != nil {
		return diffstore.DiffSet{}, err
	}
	defer s.Close()
	return s.SaveDiffSet(ctx, name, res)
}

// renderReport builds the report for p, redacts it unless disabled, and
// writes it in the configured format.
func renderReport(p *parsed, repo gitctx.RepoMeta, cfg config.Config) error {
	report := review.BuildReport(p.result, p.inputs, repoInfo(repo), p.timing)
	redactReport(&report, cfg)
	if err := output.WriteReport(&report, cfg.Format, flagOut); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func redactReport(report *review.Report, cfg config.Config) {
	if flagNoRedact || !cfg.Privacy.RedactSecrets {
		if flagNoRedact {
			fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
		}
		return
	}
	if n := redact.Report(report, cfg.Privacy.RedactPaths); n > 0 {
		slog.Info("[INFO-REDACT] redacted file bodies", "files", n)
	}
}

func repoInfo(m gitctx.RepoMeta) review.RepoInfo {
	return review.RepoInfo{Root: m.Root, Head: m.Head, Branch: m.Branch}
}

// runDiff is the shared tail of every command that produces one diff.
func runDiff(ctx context.Context, src gitctx.DiffResult, cfg config.Config, readDur time.Duration) {
	p, err := parseDiff(ctx, src, cfg, flagName, readDur)
	if err != nil {
		fail(err)
		return
	}
	if p.diffSet != nil {
		fmt.Fprintf(os.Stderr, "Stored diff set %s (%d files)\n", p.diffSet.ID, p.diffSet.FileCount)
	}
	if err := renderReport(p, src.Repo, cfg); err != nil {
		fail(err)
	}
}

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse a diff file, or stdin with -",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		start := time.Now()
		src, err := gitctx.ReadDiff(args[0], buildDiffOpts(cfg))
		if err != nil {
			fail(err)
			return nil
		}
		runDiff(cmd.Context(), src, cfg, time.Since(start))
		return nil
	},
}

func init() {
	addParseFlags(parseCmd)
}
