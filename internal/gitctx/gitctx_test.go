package gitctx

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reviewboard/rbdiff/internal/diffparser"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.go", []string{"*.go"}, true},
		{"deep/dir/main.go", []string{"**/*"}, true},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestMatchesAny_EmptyPatterns(t *testing.T) {
	if MatchesAny("main.go", nil) {
		t.Error("MatchesAny with nil patterns should return false")
	}
	if MatchesAny("main.go", []string{}) {
		t.Error("MatchesAny with empty patterns should return false")
	}
}

func TestBuildDiffArgs(t *testing.T) {
	opts := DiffOptions{
		ContextLines: 5,
		Include:      []string{"*.go"},
	}
	args := buildDiffArgs(opts, "--cached")
	want := []string{"diff", "--full-index", "--no-color", "--binary", "-U5", "--cached", "--", "*.go"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("buildDiffArgs = %v, want %v", args, want)
	}
}

func TestBuildDiffArgs_DefaultInclude(t *testing.T) {
	opts := DiffOptions{
		ContextLines: 3,
		Include:      []string{"**/*"},
	}
	args := buildDiffArgs(opts)
	// **/* should NOT be passed to git (it's the default "include all")
	for _, a := range args {
		if a == "**/*" {
			t.Error("**/* should not be passed as a git path filter")
		}
	}
	if args[len(args)-1] != "--" {
		t.Errorf("last arg = %q, want --", args[len(args)-1])
	}
}

func TestBuildDiffArgs_NoContextLines(t *testing.T) {
	args := buildDiffArgs(DiffOptions{})
	for _, a := range args {
		if strings.HasPrefix(a, "-U") {
			t.Error("Should not have -U flag with ContextLines=0")
		}
	}
}

func TestMergeBaseRange(t *testing.T) {
	tests := []struct {
		in        string
		mergeBase bool
		want      string
	}{
		{"main..feature", true, "main...feature"},
		{"main..feature", false, "main..feature"},
		{"main...feature", true, "main...feature"},
		{"HEAD~3", true, "HEAD~3"},
	}
	for _, tt := range tests {
		if got := mergeBaseRange(tt.in, tt.mergeBase); got != tt.want {
			t.Errorf("mergeBaseRange(%q, %v) = %q, want %q", tt.in, tt.mergeBase, got, tt.want)
		}
	}
}

func TestBuildResult_TooLarge(t *testing.T) {
	diff := []byte("diff --git a/main.go b/main.go\n" + strings.Repeat("+x\n", 100))
	_, err := buildResult(diff, "unstaged", "", DiffOptions{MaxDiffBytes: 50})
	if !errors.Is(err, ErrDiffTooLarge) {
		t.Fatalf("buildResult error = %v, want ErrDiffTooLarge", err)
	}
}

func TestBuildResult_KeepsBytes(t *testing.T) {
	diff := []byte("diff --git a/main.go b/main.go\r\n+ok\n")
	result, err := buildResult(diff, "staged", "abc..def", DiffOptions{MaxDiffBytes: 1000})
	if err != nil {
		t.Fatalf("buildResult error: %v", err)
	}
	if result.Mode != "staged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "staged")
	}
	if result.Range != "abc..def" {
		t.Errorf("Range = %q, want %q", result.Range, "abc..def")
	}
	if string(result.Diff) != string(diff) {
		t.Errorf("Diff = %q, want bytes unchanged", result.Diff)
	}
}

func TestReadLimited(t *testing.T) {
	result, err := readLimited(strings.NewReader("abc"), "in", 3)
	if err != nil {
		t.Fatalf("readLimited error: %v", err)
	}
	if string(result.Diff) != "abc" {
		t.Errorf("Diff = %q, want %q", result.Diff, "abc")
	}

	_, err = readLimited(strings.NewReader("abcd"), "in", 3)
	if !errors.Is(err, ErrDiffTooLarge) {
		t.Errorf("readLimited error = %v, want ErrDiffTooLarge", err)
	}

	result, err = readLimited(strings.NewReader(strings.Repeat("y", 4096)), "in", 0)
	if err != nil || len(result.Diff) != 4096 {
		t.Errorf("unlimited read got %d bytes, err %v", len(result.Diff), err)
	}
}

func TestReadDiff_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "change.diff")
	content := "diff --git a/a b/a\n--- a/a\n+++ b/a\n@@ -1 +1 @@\n-x\n+y\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := ReadDiff(path, DiffOptions{})
	if err != nil {
		t.Fatalf("ReadDiff error: %v", err)
	}
	if result.Mode != "file" || result.Range != path {
		t.Errorf("Mode/Range = %q/%q", result.Mode, result.Range)
	}
	if string(result.Diff) != content {
		t.Errorf("Diff = %q, want file content", result.Diff)
	}
}

func TestReadDiff_Missing(t *testing.T) {
	_, err := ReadDiff(filepath.Join(t.TempDir(), "nope.diff"), DiffOptions{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterChanges(t *testing.T) {
	files := []diffparser.FileChange{
		{OrigPath: "main.go", NewPath: "main.go"},
		{OrigPath: "vendor/lib.go", NewPath: "vendor/lib.go"},
		{OrigPath: "vendor/moved.go", NewPath: "pkg/moved.go", IsMoved: true},
		{OrigPath: "dist/app.js", NewPath: "dist/app.js", IsDeleted: true},
		{OrigPath: "README.md", NewPath: "README.md"},
	}

	got := FilterChanges(files, []string{"*.go", "**/*.go"}, []string{"vendor/**", "**/dist/**"})
	var paths []string
	for _, fc := range got {
		paths = append(paths, fc.NewPath)
	}
	want := "main.go pkg/moved.go"
	if strings.Join(paths, " ") != want {
		t.Errorf("FilterChanges paths = %v, want %s", paths, want)
	}
}

func TestFilterChanges_NoPatterns(t *testing.T) {
	files := []diffparser.FileChange{{NewPath: "a"}, {NewPath: "b"}}
	if got := FilterChanges(files, nil, nil); len(got) != 2 {
		t.Errorf("FilterChanges without patterns kept %d, want 2", len(got))
	}
}

func TestFilterChanges_Empty(t *testing.T) {
	if got := FilterChanges(nil, nil, []string{"vendor/**"}); len(got) != 0 {
		t.Errorf("FilterChanges nil input got %d, want 0", len(got))
	}
}

// setupTestRepo creates a temp git repo with some tracked files, chdirs
// into it for the duration of the test and returns its path.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	gitRun(t, dir, "init")
	gitRun(t, dir, "checkout", "-b", "main")

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "util.go"), []byte("package main\n\nfunc helper() {}\n"), 0o644)
	os.MkdirAll(filepath.Join(dir, "vendor"), 0o755)
	os.WriteFile(filepath.Join(dir, "vendor", "lib.go"), []byte("package vendor\n"), 0o644)

	gitRun(t, dir, "add", "-A")
	gitRun(t, dir, "commit", "-m", "init")

	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestUnstaged_Parses(t *testing.T) {
	dir := setupTestRepo(t)
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() { run() }\n"), 0o644)

	result, err := Unstaged(DiffOptions{ContextLines: 3})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	if result.Mode != "unstaged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "unstaged")
	}
	if result.Repo.Branch != "main" {
		t.Errorf("Repo.Branch = %q, want %q", result.Repo.Branch, "main")
	}

	res, err := diffparser.Parse(result.Diff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(res.Files))
	}
	fc := res.Files[0]
	if fc.NewPath != "main.go" {
		t.Errorf("NewPath = %q, want main.go", fc.NewPath)
	}
	// --full-index gives 40-char object IDs.
	if len(fc.OrigRevision) != 40 {
		t.Errorf("OrigRevision = %q, want a full object ID", fc.OrigRevision)
	}
	if fc.InsertCount != 1 || fc.DeleteCount != 1 {
		t.Errorf("counts = +%d -%d, want +1 -1", fc.InsertCount, fc.DeleteCount)
	}
}

func TestStaged_BinaryAndNewFile(t *testing.T) {
	dir := setupTestRepo(t)
	os.WriteFile(filepath.Join(dir, "logo.bin"), []byte{0, 1, 2, 3, 0, 255}, 0o644)
	gitRun(t, dir, "add", "logo.bin")

	result, err := Staged(DiffOptions{})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if !strings.Contains(string(result.Diff), "GIT binary patch") {
		t.Fatalf("Diff should contain a binary patch:\n%s", result.Diff)
	}

	res, err := diffparser.Parse(result.Diff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(res.Files))
	}
	fc := res.Files[0]
	if !fc.IsBinary || !fc.IsNew {
		t.Errorf("IsBinary=%v IsNew=%v, want both true", fc.IsBinary, fc.IsNew)
	}
	if fc.OrigRevision != diffparser.PreCreation {
		t.Errorf("OrigRevision = %q, want %q", fc.OrigRevision, diffparser.PreCreation)
	}
}

func TestCommit_RootCommit(t *testing.T) {
	setupTestRepo(t)

	result, err := Commit("HEAD", "", DiffOptions{})
	if err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	res, err := diffparser.Parse(result.Diff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("got %d files, want 3", len(res.Files))
	}
	for _, fc := range res.Files {
		if !fc.IsNew {
			t.Errorf("%s: IsNew = false, want true", fc.NewPath)
		}
	}
}

func TestCommit_TooLarge(t *testing.T) {
	setupTestRepo(t)

	_, err := Commit("HEAD", "", DiffOptions{MaxDiffBytes: 10})
	if !errors.Is(err, ErrDiffTooLarge) {
		t.Errorf("Commit error = %v, want ErrDiffTooLarge", err)
	}
}

func TestRange_Rename(t *testing.T) {
	dir := setupTestRepo(t)
	base := gitRun(t, dir, "rev-parse", "HEAD")
	gitRun(t, dir, "mv", "util.go", "helpers.go")
	gitRun(t, dir, "commit", "-m", "rename util")

	result, err := Range(base+"..HEAD", false, DiffOptions{})
	if err != nil {
		t.Fatalf("Range error: %v", err)
	}
	if result.Range != base+"..HEAD" {
		t.Errorf("Range = %q", result.Range)
	}
	res, err := diffparser.Parse(result.Diff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(res.Files))
	}
	fc := res.Files[0]
	if !fc.IsMoved || fc.OrigPath != "util.go" || fc.NewPath != "helpers.go" {
		t.Errorf("got moved=%v %q -> %q, want util.go -> helpers.go", fc.IsMoved, fc.OrigPath, fc.NewPath)
	}
}

func TestListCommits(t *testing.T) {
	dir := setupTestRepo(t)
	initSHA := gitRun(t, dir, "rev-parse", "HEAD")

	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0o644)
	gitRun(t, dir, "add", "a.go")
	gitRun(t, dir, "commit", "-m", "add a.go")

	os.WriteFile(filepath.Join(dir, "b.go"), []byte("package main\n"), 0o644)
	gitRun(t, dir, "add", "b.go")
	gitRun(t, dir, "commit", "-m", "add b.go")

	commits, err := ListCommits(initSHA + "..HEAD")
	if err != nil {
		t.Fatalf("ListCommits error: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}

	// Oldest first
	if commits[0].Subject != "add a.go" {
		t.Errorf("commits[0].Subject = %q, want %q", commits[0].Subject, "add a.go")
	}
	if commits[1].Subject != "add b.go" {
		t.Errorf("commits[1].Subject = %q, want %q", commits[1].Subject, "add b.go")
	}
	if len(commits[0].SHA) != 40 {
		t.Errorf("SHA length = %d, want 40", len(commits[0].SHA))
	}
}

func TestListCommits_DivergedBranches(t *testing.T) {
	dir := setupTestRepo(t)

	gitRun(t, dir, "checkout", "-b", "feature")
	os.WriteFile(filepath.Join(dir, "feature.go"), []byte("package main\n"), 0o644)
	gitRun(t, dir, "add", "feature.go")
	gitRun(t, dir, "commit", "-m", "feature work")

	gitRun(t, dir, "checkout", "main")
	os.WriteFile(filepath.Join(dir, "main_only.go"), []byte("package main\n"), 0o644)
	gitRun(t, dir, "add", "main_only.go")
	gitRun(t, dir, "commit", "-m", "unrelated main commit")

	commits, err := ListCommits("main..feature")
	if err != nil {
		t.Fatalf("ListCommits error: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1: %+v", len(commits), commits)
	}
	if commits[0].Subject != "feature work" {
		t.Errorf("Subject = %q, want %q", commits[0].Subject, "feature work")
	}
}

func TestListCommits_EmptyRange(t *testing.T) {
	setupTestRepo(t)

	commits, err := ListCommits("HEAD..HEAD")
	if err != nil {
		t.Fatalf("ListCommits error: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("got %d commits for empty range, want 0", len(commits))
	}
}
