package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/diffview"
	"github.com/reviewboard/rbdiff/internal/review"
)

const fixtureDiff = "diff --git a/main.go b/main.go\n" +
	"index 1111111111111111111111111111111111111111..2222222222222222222222222222222222222222 100644\n" +
	"--- a/main.go\n" +
	"+++ b/main.go\n" +
	"@@ -1,3 +1,3 @@ package main\n" +
	" package main\n" +
	"-var a = 1\n" +
	"+var a = 2\n" +
	" // end\n" +
	"diff --git a/old|name.txt b/new.txt\n" +
	"similarity index 100%\n" +
	"rename from old|name.txt\n" +
	"rename to new.txt\n" +
	"diff --git a/logo.png b/logo.png\n" +
	"index 3333333..4444444 100644\n" +
	"Binary files a/logo.png and b/logo.png differ\n" +
	"diff --git a/run.sh b/run.sh\n" +
	"new file mode 100755\n" +
	"index 0000000..5555555\n" +
	"--- /dev/null\n" +
	"+++ b/run.sh\n" +
	"@@ -0,0 +1,2 @@\n" +
	"+#!/bin/sh\n" +
	"+echo ```\n"

func fixtureReport(t *testing.T) *review.Report {
	t.Helper()
	res, err := diffparser.Parse([]byte(fixtureDiff))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	r := review.BuildReport(res,
		review.InputInfo{Mode: "file", Range: "fixture.diff"},
		review.RepoInfo{Root: "/tmp/repo", Branch: "main"},
		review.Timing{ReadMs: 1, ParseMs: 2, TotalMs: 3},
	)
	return &r
}

func emptyReport() *review.Report {
	r := review.BuildReport(&diffparser.Result{Preamble: []byte{}, Files: []diffparser.FileChange{}},
		review.InputInfo{Mode: "unstaged"}, review.RepoInfo{}, review.Timing{})
	return &r
}

func TestGetWriter(t *testing.T) {
	for _, format := range Formats {
		w, err := GetWriter(format)
		if err != nil {
			t.Errorf("GetWriter(%q) error: %v", format, err)
		}
		if w == nil {
			t.Errorf("GetWriter(%q) returned nil", format)
		}
	}
	if _, err := GetWriter("sarif"); err == nil {
		t.Error("GetWriter should reject unknown formats")
	}
}

func TestWriteReport_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(fixtureReport(t), "json", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Error("file should contain valid JSON")
	}

	// A second write replaces the file and leaves no temp files behind.
	if err := WriteReport(emptyReport(), "text", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want 1", len(entries))
	}
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.out")
	if err := WriteReport(fixtureReport(t), "sarif", path); err == nil {
		t.Fatal("WriteReport should reject unknown formats")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be created for an unknown format")
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"file input",
		"Source: fixture.diff",
		"Repository: /tmp/repo (branch: main)",
		"Files: 4 total (2 modified, 1 new, 0 deleted, 1 moved, 0 copied)",
		"[M] main.go  (+1 -1)",
		"[R] old|name.txt -> new.txt  (similarity 100%)",
		"[M] logo.png  (binary)",
		"[A] run.sh  (+2 -0)",
		"Completed in 3ms (read: 1ms, parse: 2ms)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "No file changes.") {
		t.Errorf("empty report output:\n%s", buf.String())
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if parsed["tool"] != "rbdiff" {
		t.Errorf("tool = %v, want rbdiff", parsed["tool"])
	}
	files, ok := parsed["files"].([]interface{})
	if !ok || len(files) != 4 {
		t.Fatalf("files = %v, want 4 entries", parsed["files"])
	}
	first := files[0].(map[string]interface{})
	if first["origRevision"] != "1111111111111111111111111111111111111111" {
		t.Errorf("origRevision = %v", first["origRevision"])
	}
	if !strings.Contains(first["header"].(string), "+++ b/main.go") {
		t.Errorf("header = %v", first["header"])
	}
	if bytes.Contains(buf.Bytes(), []byte(`\u003e`)) {
		t.Error("diff text should not be HTML-escaped")
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"## rbdiff: file",
		"| **Total** | **4** |",
		"| `main.go` | modified | 111111111111..222222222222 | +1 -1 |",
		"| `old\\|name.txt -> new.txt` | moved |",
		"```diff\n@@ -1,3 +1,3 @@ package main\n",
		// run.sh contains a triple backtick, so its fence is longer.
		"````diff\n@@ -0,0 +1,2 @@\n+#!/bin/sh\n+echo ```\n````\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "No file changes.") {
		t.Errorf("empty markdown:\n%s", buf.String())
	}
}

func TestHTMLWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewHTMLWriter().Write(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>rbdiff: file</title>",
		"<table>",
		"<td><code>main.go</code></td>",
		`<code class="language-diff">`,
		"+var a = 2",
		"</html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestSideBySideWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &SideBySideWriter{Width: 20}
	if err := w.Write(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"@@ -1,3 +1,3 @@ package main",
		"    1 package main           ",
		"    2 var a = [-1-]        |     2 var a = {+2+}",
		"(binary content not shown)",
		"                           >     1 #!/bin/sh",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("side-by-side missing %q:\n%s", want, out)
		}
	}
}

func TestSideBySideWriter_InvalidUTF8(t *testing.T) {
	diff := "diff --git a/menu.txt b/menu.txt\n" +
		"index 1111111..2222222 100644\n" +
		"--- a/menu.txt\n" +
		"+++ b/menu.txt\n" +
		"@@ -1 +1 @@\n" +
		"-caf\xe9\n" +
		"+cafe\n"
	res, err := diffparser.Parse([]byte(diff))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	r := review.BuildReport(res, review.InputInfo{Mode: "file"}, review.RepoInfo{}, review.Timing{})

	var buf bytes.Buffer
	if err := (&SideBySideWriter{Width: 20}).Write(&buf, &r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"caf[-\uFFFD-]", "caf{+e+}"} {
		if !strings.Contains(out, want) {
			t.Errorf("side-by-side missing %q:\n%s", want, out)
		}
	}
}

func TestMarkRegions_Clamped(t *testing.T) {
	got := markRegions("abc", []diffview.Region{{Start: 1, End: 9}}, "[", "]")
	if got != "a[bc]" {
		t.Errorf("markRegions = %q, want %q", got, "a[bc]")
	}
	got = markRegions("abc", []diffview.Region{{Start: 5, End: 7}}, "[", "]")
	if got != "abc[]" {
		t.Errorf("markRegions past end = %q, want %q", got, "abc[]")
	}
}

func TestPadColumn(t *testing.T) {
	if got := padColumn("abc", 5); got != "abc  " {
		t.Errorf("padColumn pad = %q", got)
	}
	if got := padColumn("abcdefgh", 5); got != "abcd…" {
		t.Errorf("padColumn truncate = %q", got)
	}
	if got := padColumn("héllo", 5); got != "héllo" {
		t.Errorf("padColumn runes = %q", got)
	}
}

func TestCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "```"},
		{"has `one`", "```"},
		{"has ```three```", "````"},
		{"has `````five", "``````"},
	}
	for _, tt := range tests {
		if got := codeFence(tt.in); got != tt.want {
			t.Errorf("codeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortRev(t *testing.T) {
	if got := shortRev("1234567890abcdef"); got != "1234567890ab" {
		t.Errorf("shortRev = %q", got)
	}
	if got := shortRev(diffparser.PreCreation); got != diffparser.PreCreation {
		t.Errorf("shortRev(PRE-CREATION) = %q", got)
	}
}
