// Tests here use testify require/assert. The cli, config, cache, gitctx,
// output and redact packages, and review/types_test.go, use plain
// table-driven tests with the testing package.

package review

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewboard/rbdiff/internal/diffparser"
)

const reportDiff = "Subject: two files\n" +
	"diff --git a/main.go b/main.go\n" +
	"index 1111111..2222222 100644\n" +
	"--- a/main.go\n" +
	"+++ b/main.go\n" +
	"@@ -1,2 +1,2 @@\n" +
	" package main\n" +
	"-var x = 1\n" +
	"+var x = 2\n" +
	"@@ -10 +10,2 @@\n" +
	" func f() {}\n" +
	"+func g() {}\n" +
	"diff --git a/logo.png b/logo.png\n" +
	"index 3333333..4444444 100644\n" +
	"Binary files a/logo.png and b/logo.png differ\n"

func TestBuildReport(t *testing.T) {
	res, err := diffparser.Parse([]byte(reportDiff))
	require.NoError(t, err)

	inputs := InputInfo{Mode: "file", Range: "change.diff"}
	repo := RepoInfo{Root: "/src", Branch: "main"}
	r := BuildReport(res, inputs, repo, Timing{ParseMs: 1, TotalMs: 2})

	assert.Equal(t, ToolName, r.Tool)
	assert.Equal(t, Version, r.Version)
	assert.Len(t, r.RunID, 36)
	assert.Equal(t, inputs, r.Inputs)
	assert.Equal(t, repo, r.Repo)
	assert.Equal(t, "Subject: two files\n", r.Preamble)
	assert.Equal(t, int64(2), r.Timing.TotalMs)

	require.Len(t, r.Files, 2)
	main := r.Files[0]
	assert.Equal(t, "main.go", main.NewPath)
	assert.Equal(t, "1111111", main.OrigRevision)
	assert.Equal(t, "modified", main.Status)
	assert.Equal(t, 2, main.Hunks)
	assert.Equal(t, 2, main.Insertions)
	assert.Equal(t, 1, main.Deletions)
	assert.Contains(t, main.Header, "+++ b/main.go\n")
	assert.Contains(t, main.Diff, "+var x = 2\n")

	logo := r.Files[1]
	assert.True(t, logo.IsBinary)
	assert.Zero(t, logo.Hunks)

	assert.Equal(t, 2, r.Summary.Files)
	assert.Equal(t, 2, r.Summary.Counts.Modified)
	assert.Equal(t, 1, r.Summary.Binary)
	assert.Equal(t, 2, r.Summary.Hunks)
}

func TestBuildReport_UniqueRunIDs(t *testing.T) {
	res := &diffparser.Result{Preamble: []byte{}, Files: []diffparser.FileChange{}}
	a := BuildReport(res, InputInfo{}, RepoInfo{}, Timing{})
	b := BuildReport(res, InputInfo{}, RepoInfo{}, Timing{})
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotNil(t, a.Files)
	assert.Empty(t, a.Files)
}

func TestNewFileEntry_NonHunkBody(t *testing.T) {
	fc := diffparser.FileChange{
		OrigPath: "notes.txt",
		NewPath:  "notes.txt",
		Header:   []byte("diff --git a/notes.txt b/notes.txt\n"),
		Data:     []byte("free text that is not a hunk\n"),
	}
	e := NewFileEntry(fc)
	assert.Zero(t, e.Hunks)
	assert.Equal(t, "free text that is not a hunk\n", e.Diff)
}

func TestNewFileEntry_Statuses(t *testing.T) {
	tests := []struct {
		fc   diffparser.FileChange
		want string
	}{
		{diffparser.FileChange{IsNew: true}, "new"},
		{diffparser.FileChange{IsDeleted: true}, "deleted"},
		{diffparser.FileChange{IsMoved: true, Similarity: "90%"}, "moved"},
		{diffparser.FileChange{IsCopied: true}, "copied"},
		{diffparser.FileChange{}, "modified"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewFileEntry(tt.fc).Status)
	}
}

func TestNewFileEntry_RawDiffForInvalidUTF8(t *testing.T) {
	body := []byte("@@ -1 +1 @@\n-caf\xe9\n+cafe\n")
	e := NewFileEntry(diffparser.FileChange{OrigPath: "menu.txt", NewPath: "menu.txt", Data: body})
	assert.Equal(t, body, e.RawDiff)
	assert.Equal(t, 1, e.Hunks)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	var back FileEntry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, body, back.RawDiff)
	assert.Contains(t, back.Diff, "caf\uFFFD")
}

func TestNewFileEntry_NoRawDiffForUTF8(t *testing.T) {
	e := NewFileEntry(diffparser.FileChange{Data: []byte("@@ -1 +1 @@\n-café\n+cafe\n")})
	assert.Nil(t, e.RawDiff)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "rawDiff")
}
