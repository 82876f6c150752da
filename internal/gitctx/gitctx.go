package gitctx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reviewboard/rbdiff/internal/diffparser"
)

// ErrDiffTooLarge is returned when a diff exceeds DiffOptions.MaxDiffBytes.
var ErrDiffTooLarge = errors.New("diff exceeds max-diff-bytes limit")

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	MaxDiffBytes int
	Include      []string
}

// DiffResult holds the raw diff and where it came from.
type DiffResult struct {
	Diff  []byte
	Mode  string
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = nil // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = nil
	}
	return RepoMeta{
		Root:   strings.TrimSpace(string(root)),
		Head:   strings.TrimSpace(string(head)),
		Branch: strings.TrimSpace(string(branch)),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(buildDiffArgs(opts)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(diff, "unstaged", "", opts)
}

// Staged returns the diff of index vs HEAD.
func Staged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(buildDiffArgs(opts, "--cached")...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(diff, "staged", "", opts)
}

// Commit returns the diff for a specific commit vs parent, or vs its first
// parent when parent is empty.
func Commit(sha string, parent string, opts DiffOptions) (DiffResult, error) {
	if parent != "" {
		diff, err := gitOutput(buildDiffArgs(opts, parent, sha)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git diff %s %s: %w", parent, sha, err)
		}
		return buildResult(diff, "commit", sha, opts)
	}
	diff, err := gitOutput(buildDiffArgs(opts, sha+"~1", sha)...)
	if err != nil {
		// Root commit: diff against the empty tree.
		empty, treeErr := gitOutput("hash-object", "-t", "tree", os.DevNull)
		if treeErr != nil {
			return DiffResult{}, fmt.Errorf("git diff %s: %w", sha, err)
		}
		diff, err = gitOutput(buildDiffArgs(opts, strings.TrimSpace(string(empty)), sha)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git diff %s: %w", sha, err)
		}
	}
	return buildResult(diff, "commit", sha, opts)
}

// Range returns the combined diff for a revision range.
func Range(revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(buildDiffArgs(opts, mergeBaseRange(revRange, mergeBase))...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(diff, "range", revRange, opts)
}

// ReadDiff reads a diff from a file, or from stdin when path is "-".
func ReadDiff(path string, opts DiffOptions) (DiffResult, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return DiffResult{}, fmt.Errorf("opening diff: %w", err)
		}
		defer f.Close()
		r = f
	}
	return readLimited(r, path, opts.MaxDiffBytes)
}

// readLimited reads r, stopping one byte past the limit so oversize input
// is detected without buffering all of it.
func readLimited(r io.Reader, name string, limit int) (DiffResult, error) {
	if limit > 0 {
		r = io.LimitReader(r, int64(limit)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return DiffResult{}, fmt.Errorf("reading diff %s: %w", name, err)
	}
	if limit > 0 && len(data) > limit {
		return DiffResult{}, fmt.Errorf("%s: %w (%d bytes)", name, ErrDiffTooLarge, limit)
	}
	return DiffResult{Diff: data, Mode: "file", Range: name}, nil
}

// buildDiffArgs assembles a git diff invocation. The flags make git emit
// full blob IDs, no color codes and binary patches the parser can keep.
func buildDiffArgs(opts DiffOptions, revs ...string) []string {
	args := []string{"diff", "--full-index", "--no-color", "--binary"}
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	args = append(args, revs...)
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

func buildResult(diff []byte, mode, rangeStr string, opts DiffOptions) (DiffResult, error) {
	if opts.MaxDiffBytes > 0 && len(diff) > opts.MaxDiffBytes {
		return DiffResult{}, fmt.Errorf("%s diff is %d bytes: %w", mode, len(diff), ErrDiffTooLarge)
	}
	meta, err := GetRepoMeta()
	if err != nil {
		meta = RepoMeta{}
	}
	return DiffResult{
		Diff:  diff,
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
	}, nil
}

func mergeBaseRange(revRange string, mergeBase bool) string {
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		return strings.Replace(revRange, "..", "...", 1)
	}
	return revRange
}

// FilterChanges keeps the file changes whose path matches include (all when
// include is empty) and none of exclude. Both the new and the original path
// are checked so renames out of an excluded tree stay visible.
func FilterChanges(files []diffparser.FileChange, include, exclude []string) []diffparser.FileChange {
	var kept []diffparser.FileChange
	for _, fc := range files {
		paths := changePaths(fc)
		if len(include) > 0 && !anyMatches(paths, include) {
			continue
		}
		if len(exclude) > 0 && allMatch(paths, exclude) {
			continue
		}
		kept = append(kept, fc)
	}
	return kept
}

func changePaths(fc diffparser.FileChange) []string {
	var paths []string
	if fc.NewPath != "" {
		paths = append(paths, fc.NewPath)
	}
	if fc.OrigPath != "" && fc.OrigPath != fc.NewPath {
		paths = append(paths, fc.OrigPath)
	}
	return paths
}

func anyMatches(paths, patterns []string) bool {
	for _, p := range paths {
		if MatchesAny(p, patterns) {
			return true
		}
	}
	return false
}

func allMatch(paths, patterns []string) bool {
	for _, p := range paths {
		if !MatchesAny(p, patterns) {
			return false
		}
	}
	return len(paths) > 0
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// CommitInfo holds a commit SHA and its subject line.
type CommitInfo struct {
	SHA     string
	Subject string
}

// ListCommits returns the commits reachable from the right side of revRange
// and not from the left, oldest first. The range goes to rev-list as given:
// "A..B" already stops at the merge base, while "A...B" would also list
// commits only on A.
func ListCommits(revRange string) ([]CommitInfo, error) {
	// Output format: "commit <sha>\n<subject>\n" per commit.
	out, err := gitOutput("rev-list", "--reverse", "--format=%s", revRange)
	if err != nil {
		return nil, fmt.Errorf("git rev-list %s: %w", revRange, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	var commits []CommitInfo
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "commit ") {
			continue
		}
		sha := strings.TrimPrefix(line, "commit ")
		var subject string
		if i+1 < len(lines) && !strings.HasPrefix(lines[i+1], "commit ") {
			subject = strings.TrimSpace(lines[i+1])
			i++
		}
		commits = append(commits, CommitInfo{
			SHA:     sha,
			Subject: subject,
		})
	}
	return commits, nil
}

// gitOutput runs git in the current directory and returns stdout unchanged.
// Diff bytes are kept exactly as git wrote them.
func gitOutput(args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
