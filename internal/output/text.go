package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/reviewboard/rbdiff/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("rbdiff %s: %s input\n", report.Version, report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("Source: %s\n", report.Inputs.Range)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	if report.Inputs.DiffSetID != "" {
		ew.printf("Diff set: %s\n", report.Inputs.DiffSetID)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Files: %d total", s.Files)
	if s.Files > 0 {
		ew.printf(" (%d modified, %d new, %d deleted, %d moved, %d copied)",
			s.Counts.Modified, s.Counts.New, s.Counts.Deleted, s.Counts.Moved, s.Counts.Copied)
	}
	ew.println("")
	ew.printf("Lines: +%d -%d in %d hunks\n", s.Insertions, s.Deletions, s.Hunks)
	ew.println(strings.Repeat("─", 60))

	if s.Files == 0 {
		ew.println("\nNo file changes.")
		return ew.err
	}

	ew.println("")
	for _, f := range report.Files {
		ew.printf("  %s %s%s\n", statusIcon(f.Status), displayPath(f), fileNotes(f))
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (read: %dms, parse: %dms)\n",
		report.Timing.TotalMs, report.Timing.ReadMs, report.Timing.ParseMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func statusIcon(status string) string {
	switch status {
	case "new":
		return "[A]"
	case "deleted":
		return "[D]"
	case "moved":
		return "[R]"
	case "copied":
		return "[C]"
	default:
		return "[M]"
	}
}

// displayPath shows "orig -> new" for moves and copies.
func displayPath(f review.FileEntry) string {
	if (f.Status == "moved" || f.Status == "copied") && f.OrigPath != f.NewPath {
		return f.OrigPath + " -> " + f.NewPath
	}
	return f.Path()
}

func fileNotes(f review.FileEntry) string {
	var notes []string
	switch {
	case f.IsBinary:
		notes = append(notes, "binary")
	case f.Insertions > 0 || f.Deletions > 0:
		notes = append(notes, fmt.Sprintf("+%d -%d", f.Insertions, f.Deletions))
	}
	if f.OldMode != "" && f.NewMode != "" && f.OldMode != f.NewMode {
		notes = append(notes, fmt.Sprintf("mode %s -> %s", f.OldMode, f.NewMode))
	}
	if f.Similarity != "" {
		notes = append(notes, "similarity "+f.Similarity)
	}
	if f.Redacted {
		notes = append(notes, "redacted")
	}
	if len(notes) == 0 {
		return ""
	}
	return "  (" + strings.Join(notes, ", ") + ")"
}
