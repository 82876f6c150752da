package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/reviewboard/rbdiff/internal/diffview"
	"github.com/reviewboard/rbdiff/internal/review"
)

const defaultColumnWidth = 60

// SideBySideWriter prints each text change as two columns, original on the
// left and new on the right. Replaced lines mark the changed regions
// [-like this-] on the left and {+like this+} on the right.
type SideBySideWriter struct {
	Width int // column width in runes
}

func (s *SideBySideWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	width := s.Width
	if width <= 0 {
		width = defaultColumnWidth
	}

	if len(report.Files) == 0 {
		ew.println("No file changes.")
		return ew.err
	}

	for i, f := range report.Files {
		if i > 0 {
			ew.println("")
		}
		ew.printf("%s %s%s\n", statusIcon(f.Status), displayPath(f), fileNotes(f))
		ew.println(strings.Repeat("═", 2*width+15))

		switch {
		case f.IsBinary:
			ew.println("  (binary content not shown)")
			continue
		case f.Diff == "":
			continue
		}

		hunks, err := diffview.ParseHunks([]byte(f.Diff))
		if err != nil {
			// Redacted or otherwise non-hunk bodies are shown as is.
			ew.printf("%s", f.Diff)
			if !strings.HasSuffix(f.Diff, "\n") {
				ew.println("")
			}
			continue
		}
		for _, h := range hunks {
			ew.printf("@@ -%d,%d +%d,%d @@ %s\n", h.OrigStart, h.OrigLines, h.NewStart, h.NewLines, h.Section)
			for _, row := range diffview.SideBySide(h) {
				ew.println(formatRow(row, width))
			}
		}
	}
	return ew.err
}

func formatRow(row diffview.Row, width int) string {
	var left, right string
	var origNum, newNum int
	// Bodies may hold any bytes; columns are laid out in runes.
	if row.Orig != nil {
		left, origNum = strings.ToValidUTF8(row.Orig.Text, "\uFFFD"), row.Orig.OrigNum
	}
	if row.New != nil {
		right, newNum = strings.ToValidUTF8(row.New.Text, "\uFFFD"), row.New.NewNum
	}

	mid := " "
	switch {
	case row.Changed:
		mid = "|"
		origRegions, newRegions := diffview.ChangedRegions(left, right)
		left = markRegions(left, origRegions, "[-", "-]")
		right = markRegions(right, newRegions, "{+", "+}")
	case row.Orig == nil:
		mid = ">"
	case row.New == nil:
		mid = "<"
	}

	return lineNum(origNum) + " " + padColumn(left, width) + " " + mid + " " + lineNum(newNum) + " " + right
}

// markRegions wraps each region of s in open/close markers. Regions are
// clamped to s and must be in ascending order.
func markRegions(s string, regions []diffview.Region, open, close string) string {
	if len(regions) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, r := range regions {
		r.Start = min(max(r.Start, prev), len(s))
		r.End = min(max(r.End, r.Start), len(s))
		b.WriteString(s[prev:r.Start])
		b.WriteString(open)
		b.WriteString(s[r.Start:r.End])
		b.WriteString(close)
		prev = r.End
	}
	b.WriteString(s[prev:])
	return b.String()
}

func lineNum(n int) string {
	if n == 0 {
		return "     "
	}
	return fmt.Sprintf("%5d", n)
}

// padColumn truncates or pads s to width runes.
func padColumn(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-n)
}
