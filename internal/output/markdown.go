package output

import (
	"io"
	"strings"

	"github.com/reviewboard/rbdiff/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("## rbdiff: %s\n\n", report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("Source: `%s`\n\n", report.Inputs.Range)
	}

	// Summary table
	ew.printf("| Status | Count |\n")
	ew.printf("|--------|-------|\n")
	ew.printf("| Modified | %d |\n", s.Counts.Modified)
	ew.printf("| New | %d |\n", s.Counts.New)
	ew.printf("| Deleted | %d |\n", s.Counts.Deleted)
	ew.printf("| Moved | %d |\n", s.Counts.Moved)
	ew.printf("| Copied | %d |\n", s.Counts.Copied)
	ew.printf("| **Total** | **%d** |\n\n", s.Files)

	if s.Files == 0 {
		ew.println("No file changes.")
		return ew.err
	}

	ew.printf("**+%d -%d** in %d hunks\n\n", s.Insertions, s.Deletions, s.Hunks)

	// Per-file table
	ew.printf("| File | Status | Revision | Changes |\n")
	ew.printf("|------|--------|----------|---------|\n")
	for _, f := range report.Files {
		ew.printf("| `%s` | %s | %s | %s |\n",
			mdEscapeCell(displayPath(f)), f.Status, mdEscapeCell(revisionLabel(f)), mdEscapeCell(changeLabel(f)))
	}
	ew.println("")

	for _, f := range report.Files {
		if f.Diff == "" {
			continue
		}
		ew.printf("### %s\n\n", mdEscapeText(displayPath(f)))
		lang := "diff"
		if f.IsBinary {
			lang = ""
		}
		fence := codeFence(f.Diff)
		ew.printf("%s%s\n%s", fence, lang, f.Diff)
		if !strings.HasSuffix(f.Diff, "\n") {
			ew.println("")
		}
		ew.printf("%s\n\n", fence)
	}

	ew.printf("*Parsed in %dms*\n", report.Timing.TotalMs)
	return ew.err
}

func revisionLabel(f review.FileEntry) string {
	orig := shortRev(f.OrigRevision)
	if f.NewRevision == "" {
		return orig
	}
	return orig + ".." + shortRev(f.NewRevision)
}

// shortRev abbreviates full object IDs to 12 characters.
func shortRev(rev string) string {
	if len(rev) > 12 && !strings.Contains(rev, "-") {
		return rev[:12]
	}
	return rev
}

func changeLabel(f review.FileEntry) string {
	notes := strings.TrimSpace(fileNotes(f))
	notes = strings.TrimSuffix(strings.TrimPrefix(notes, "("), ")")
	if notes == "" {
		return "-"
	}
	return notes
}

// codeFence returns a backtick fence longer than any backtick run in s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, c := range s {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func mdEscapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func mdEscapeText(s string) string {
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
