package review

import (
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/diffview"
)

// ToolName is reported in every Report.
const ToolName = "rbdiff"

// Version is the rbdiff release reported in every Report.
var Version = "0.1.0"

// BuildReport assembles a report for a parse result.
func BuildReport(res *diffparser.Result, inputs InputInfo, repo RepoInfo, timing Timing) Report {
	files := make([]FileEntry, 0, len(res.Files))
	for _, fc := range res.Files {
		files = append(files, NewFileEntry(fc))
	}
	return Report{
		Tool:     ToolName,
		Version:  Version,
		RunID:    uuid.NewString(),
		Repo:     repo,
		Inputs:   inputs,
		Preamble: string(res.Preamble),
		Summary:  ComputeSummary(files),
		Files:    files,
		Timing:   timing,
	}
}

// NewFileEntry converts a parsed file change. Hunks are counted for text
// changes only; a body that does not read as hunks counts as zero.
func NewFileEntry(fc diffparser.FileChange) FileEntry {
	e := FileEntry{
		OrigPath:         fc.OrigPath,
		NewPath:          fc.NewPath,
		OrigRevision:     fc.OrigRevision,
		NewRevision:      fc.NewRevision,
		Status:           fc.Status(),
		OldMode:          fc.OldMode,
		NewMode:          fc.NewMode,
		Similarity:       fc.Similarity,
		IsBinary:         fc.IsBinary,
		IsModeChangeOnly: fc.IsModeChangeOnly,
		Insertions:       fc.InsertCount,
		Deletions:        fc.DeleteCount,
		Header:           string(fc.Header),
		Diff:             string(fc.Data),
	}
	if !utf8.Valid(fc.Data) {
		e.RawDiff = fc.Data
	}
	if !fc.IsBinary && len(fc.Data) > 0 {
		hunks, err := diffview.ParseHunks(fc.Data)
		if err != nil {
			slog.Debug("[DEBUG-REPORT] body is not hunk text", "path", fc.Path(), "error", err)
		} else {
			e.Hunks = len(hunks)
		}
	}
	return e
}
