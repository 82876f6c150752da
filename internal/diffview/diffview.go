// Package diffview interprets the hunk payload of a parsed file change for
// display: it splits the payload into hunks and numbered lines, pairs removed
// and added lines side by side, and finds the changed regions inside a
// replaced line.
package diffview

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies a hunk body line.
type LineKind int

const (
	KindContext LineKind = iota
	KindInsert
	KindDelete
	KindNoNewline
)

func (k LineKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindNoNewline:
		return "no-newline"
	default:
		return "context"
	}
}

// Line is a hunk body line without its leading marker. OrigNum and NewNum
// are 1-based and 0 when the line does not exist on that side.
type Line struct {
	Kind    LineKind
	Text    string
	OrigNum int
	NewNum  int
}

// Hunk is one "@@ -a,b +c,d @@" block.
type Hunk struct {
	OrigStart int
	OrigLines int
	NewStart  int
	NewLines  int
	Section   string // text after the closing @@, usually a function name
	Lines     []Line
}

// hunkHeaderRegex matches hunk headers like:
// @@ -1,5 +1,7 @@ func main() {
// @@ -0,0 +1 @@
var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

// ParseHunks splits a text hunk payload into hunks. Binary payloads are
// not hunks and must not be passed in.
func ParseHunks(data []byte) ([]Hunk, error) {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}

	var hunks []Hunk
	var cur *Hunk
	var origNum, newNum int

	for i, line := range strings.Split(text, "\n") {
		if m := hunkHeaderRegex.FindStringSubmatch(line); m != nil {
			if cur != nil {
				hunks = append(hunks, *cur)
			}
			cur = &Hunk{
				OrigStart: atoi(m[1]),
				OrigLines: countOrDefault(m[2]),
				NewStart:  atoi(m[3]),
				NewLines:  countOrDefault(m[4]),
				Section:   m[5],
			}
			origNum, newNum = cur.OrigStart, cur.NewStart
			continue
		}

		if cur == nil {
			return nil, fmt.Errorf("line %d: content before first hunk header", i+1)
		}

		if line == "" {
			// Some tools strip the space from empty context lines.
			line = " "
		}
		l := Line{Text: line[1:]}
		switch line[0] {
		case ' ':
			l.Kind = KindContext
			l.OrigNum, l.NewNum = origNum, newNum
			origNum++
			newNum++
		case '+':
			l.Kind = KindInsert
			l.NewNum = newNum
			newNum++
		case '-':
			l.Kind = KindDelete
			l.OrigNum = origNum
			origNum++
		case '\\':
			l.Kind = KindNoNewline
		default:
			return nil, fmt.Errorf("line %d: unexpected hunk line %q", i+1, line)
		}
		cur.Lines = append(cur.Lines, l)
	}

	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// countOrDefault returns the line count of a range; an omitted count is 1.
func countOrDefault(s string) int {
	if s == "" {
		return 1
	}
	return atoi(s)
}

// Row is one line of a side-by-side view. Orig or New is nil when that side
// has no line.
type Row struct {
	Orig    *Line
	New     *Line
	Changed bool // both sides present and different
}

// SideBySide lays a hunk out in two columns. Runs of removed lines are
// paired with the added lines that follow them.
func SideBySide(h Hunk) []Row {
	var rows []Row
	var dels, ins []*Line

	flush := func() {
		n := max(len(dels), len(ins))
		for i := 0; i < n; i++ {
			var r Row
			if i < len(dels) {
				r.Orig = dels[i]
			}
			if i < len(ins) {
				r.New = ins[i]
			}
			r.Changed = r.Orig != nil && r.New != nil
			rows = append(rows, r)
		}
		dels, ins = nil, nil
	}

	for i := range h.Lines {
		l := &h.Lines[i]
		switch l.Kind {
		case KindDelete:
			if len(ins) > 0 {
				flush()
			}
			dels = append(dels, l)
		case KindInsert:
			ins = append(ins, l)
		case KindContext:
			flush()
			rows = append(rows, Row{Orig: l, New: l})
		}
	}
	flush()
	return rows
}

// Region is a byte range [Start, End) within a line.
type Region struct {
	Start int
	End   int
}

// ChangedRegions returns the byte ranges of orig and new that differ.
// The lines are compared rune by rune; an invalid UTF-8 byte counts as one
// rune of width one, so the ranges always index the original bytes.
func ChangedRegions(orig, new string) (origRegions, newRegions []Region) {
	origRunes, origOffs := decodeRunes(orig)
	newRunes, newOffs := decodeRunes(new)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMainRunes(origRunes, newRunes, false))

	var o, n int
	for _, d := range diffs {
		size := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			o += size
			n += size
		case diffmatchpatch.DiffDelete:
			origRegions = append(origRegions, Region{Start: origOffs[o], End: origOffs[o+size]})
			o += size
		case diffmatchpatch.DiffInsert:
			newRegions = append(newRegions, Region{Start: newOffs[n], End: newOffs[n+size]})
			n += size
		}
	}
	return origRegions, newRegions
}

// decodeRunes splits s into runes and returns the byte offset of each rune,
// plus len(s) as a final entry.
func decodeRunes(s string) ([]rune, []int) {
	runes := make([]rune, 0, len(s))
	offs := make([]int, 0, len(s)+1)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		runes = append(runes, r)
		offs = append(offs, i)
		i += size
	}
	return runes, append(offs, len(s))
}
