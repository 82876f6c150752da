package diffparser

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

var (
	gitDiffPrefix     = []byte("diff --git")
	gitDiffPathPrefix = []byte("diff --git a/")
	destSeparator     = []byte(" b/")
	devNull           = []byte("/dev/null")
)

// rawPath is an undecoded path token and the line it came from.
type rawPath struct {
	b    []byte
	line int
}

// section holds per-file scan state that does not belong in FileChange.
type section struct {
	orig       rawPath
	new        rawPath
	modeChange bool
}

// parser is the state of one scan. A new one is built for every call.
type parser struct {
	lines   [][]byte
	linenum int
	opts    Options
}

// Parse parses a unified git diff with default options.
func Parse(data []byte) (*Result, error) {
	return ParseWithOptions(data, Options{})
}

// ParseWithOptions parses a unified git diff.
//
// It returns a *MalformedDiffError when the input contains no file section
// but does contain non-whitespace text, and an *EncodingError when a file
// path is not valid UTF-8. On error no partial result is returned.
func ParseWithOptions(data []byte, opts Options) (*Result, error) {
	p := &parser{lines: splitLines(data), opts: opts}
	return p.parse()
}

// splitLines splits on '\n' only. A trailing newline does not produce an
// extra empty line, and '\r' is left in place.
func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	lines := bytes.Split(data, []byte{'\n'})
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func appendLine(dst, line []byte) []byte {
	dst = append(dst, line...)
	return append(dst, '\n')
}

func (p *parser) parse() (*Result, error) {
	res := &Result{Preamble: []byte{}, Files: []FileChange{}}
	sawSection := false

	for p.linenum < len(p.lines) {
		if !p.isGitDiff(p.linenum) {
			// parseFile consumes everything up to the next section, so only
			// lines before the first section end up here.
			res.Preamble = appendLine(res.Preamble, p.lines[p.linenum])
			p.linenum++
			continue
		}
		sawSection = true
		fc, err := p.parseFile()
		if err != nil {
			return nil, err
		}
		if fc != nil {
			res.Files = append(res.Files, *fc)
		}
	}

	if !sawSection && len(bytes.TrimSpace(res.Preamble)) > 0 {
		return nil, &MalformedDiffError{Reason: "this does not appear to be a git diff"}
	}
	return res, nil
}

// parseFile parses one section starting at a "diff --git" line. It returns
// a nil FileChange when the section is dropped as empty.
func (p *parser) parseFile() (*FileChange, error) {
	start := p.linenum
	fc := &FileChange{}
	var st section

	header := p.lines[start]
	fc.Header = appendLine(fc.Header, header)
	if orig, dest, ok := splitHeaderPaths(header); ok {
		st.orig = rawPath{b: orig, line: start}
		st.new = rawPath{b: dest, line: start}
	}
	p.linenum++

	p.parseExtendedHeaders(fc, &st)

	emptyChange := true
	binary := false
	sawFromFile := false
	for p.linenum < len(p.lines) {
		line := p.lines[p.linenum]
		if p.isGitDiff(p.linenum) {
			break
		}

		if binary {
			fc.Data = appendLine(fc.Data, line)
			p.linenum++
			continue
		}

		if isBinaryMarker(line) {
			fc.IsBinary = true
			binary = true
			emptyChange = false
			fc.Data = appendLine(fc.Data, line)
			p.linenum++
			continue
		}

		// The ---/+++ pair only counts before the first body line. Inside a
		// hunk the same shape is a removed "-- x" followed by an added "++ y".
		if emptyChange && !sawFromFile && p.isFromToPair(p.linenum) {
			p.applyFromTo(fc, &st)
			sawFromFile = true
			continue
		}

		emptyChange = false
		switch {
		case len(line) > 0 && line[0] == '+':
			fc.InsertCount++
		case len(line) > 0 && line[0] == '-':
			fc.DeleteCount++
		}
		fc.Data = appendLine(fc.Data, line)
		p.linenum++
	}

	origPath, err := decodePath(st.orig, "origPath")
	if err != nil {
		return nil, err
	}
	newPath, err := decodePath(st.new, "newPath")
	if err != nil {
		return nil, err
	}
	fc.OrigPath = origPath
	fc.NewPath = newPath

	if fc.OrigRevision == PreCreation && !fc.IsCopied {
		fc.IsNew = true
	}
	if st.modeChange && emptyChange {
		fc.IsModeChangeOnly = true
	}

	// An empty section is kept only for new or deleted 0-length files and
	// for moves and copies.
	if emptyChange &&
		fc.OrigRevision != PreCreation &&
		!(fc.IsMoved || fc.IsCopied || fc.IsDeleted) &&
		!(p.opts.KeepModeChanges && st.modeChange) {
		return nil, nil
	}

	if fc.OrigPath == "" && fc.NewPath == "" && !fc.IsBinary {
		return nil, &MalformedDiffError{Line: start + 1, Reason: "cannot determine file paths"}
	}

	ensureRequiredFields(fc)
	return fc, nil
}

// parseExtendedHeaders consumes git's extended header lines. Markers are
// tested in priority order and the loop stops at the first line that is not
// one of them.
func (p *parser) parseExtendedHeaders(fc *FileChange, st *section) {
	for p.linenum < len(p.lines) {
		line := p.lines[p.linenum]
		switch {
		case bytes.HasPrefix(line, []byte("new file mode")):
			fc.IsNew = true
			fc.OrigRevision = PreCreation
			fc.NewMode = headerValue(line, "new file mode")
			p.consumeHeader(fc, 1)

		case bytes.HasPrefix(line, []byte("deleted file mode")):
			fc.IsDeleted = true
			fc.OldMode = headerValue(line, "deleted file mode")
			p.consumeHeader(fc, 1)

		case p.isModeChange(p.linenum):
			st.modeChange = true
			fc.OldMode = headerValue(line, "old mode")
			fc.NewMode = headerValue(p.lines[p.linenum+1], "new mode")
			p.consumeHeader(fc, 2)

		case p.isSimilarityPair(p.linenum, "copy from", "copy to"):
			fc.IsCopied = true
			p.applySimilarity(fc, st, "copy from", "copy to")

		case p.isSimilarityPair(p.linenum, "rename from", "rename to"):
			fc.IsMoved = true
			p.applySimilarity(fc, st, "rename from", "rename to")

		case bytes.HasPrefix(line, []byte("index ")):
			p.applyIndexRange(fc, line)
			p.consumeHeader(fc, 1)

		default:
			return
		}
	}
}

func (p *parser) consumeHeader(fc *FileChange, n int) {
	for i := 0; i < n; i++ {
		fc.Header = appendLine(fc.Header, p.lines[p.linenum])
		p.linenum++
	}
}

// applySimilarity handles a "similarity index" line followed by a from/to
// pair. The from/to lines name the paths without the " b/" ambiguity of the
// diff --git line, so they take precedence.
func (p *parser) applySimilarity(fc *FileChange, st *section, fromPrefix, toPrefix string) {
	fc.Similarity = headerValue(p.lines[p.linenum], "similarity index")
	if from := headerPath(p.lines[p.linenum+1], fromPrefix); len(from) > 0 {
		st.orig = rawPath{b: from, line: p.linenum + 1}
	}
	if to := headerPath(p.lines[p.linenum+2], toPrefix); len(to) > 0 {
		st.new = rawPath{b: to, line: p.linenum + 2}
	}
	p.consumeHeader(fc, 3)
}

// applyIndexRange reads "index <orig>..<new>[ <mode>]". An all-zero origin
// blob means the file did not exist.
func (p *parser) applyIndexRange(fc *FileChange, line []byte) {
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return
	}
	orig, dest, ok := bytes.Cut(fields[1], []byte(".."))
	if !ok {
		return
	}
	fc.NewRevision = string(dest)
	if fc.OrigRevision == PreCreation {
		return
	}
	if isAllZeros(orig) {
		fc.OrigRevision = PreCreation
	} else {
		fc.OrigRevision = string(orig)
	}
}

// applyFromTo consumes a ---/+++ pair. /dev/null on either side marks a
// created or deleted file, and the pair supplies paths the diff --git line
// could not.
func (p *parser) applyFromTo(fc *FileChange, st *section) {
	from := fromToPath(p.lines[p.linenum], "--- ")
	to := fromToPath(p.lines[p.linenum+1], "+++ ")

	if bytes.Equal(from, devNull) {
		fc.OrigRevision = PreCreation
	} else if len(st.orig.b) == 0 {
		st.orig = rawPath{b: bytes.TrimPrefix(from, []byte("a/")), line: p.linenum}
	}

	if bytes.Equal(to, devNull) {
		fc.IsDeleted = true
	} else if len(st.new.b) == 0 {
		st.new = rawPath{b: bytes.TrimPrefix(to, []byte("b/")), line: p.linenum + 1}
	}

	p.consumeHeader(fc, 2)
}

func (p *parser) isGitDiff(i int) bool {
	return bytes.HasPrefix(p.lines[i], gitDiffPrefix)
}

// hasLines reports whether lines [i, i+n) all exist.
func (p *parser) hasLines(i, n int) bool {
	return i+n <= len(p.lines)
}

func (p *parser) isModeChange(i int) bool {
	return p.hasLines(i, 2) &&
		bytes.HasPrefix(p.lines[i], []byte("old mode")) &&
		bytes.HasPrefix(p.lines[i+1], []byte("new mode"))
}

func (p *parser) isSimilarityPair(i int, fromPrefix, toPrefix string) bool {
	return p.hasLines(i, 3) &&
		bytes.HasPrefix(p.lines[i], []byte("similarity index")) &&
		bytes.HasPrefix(p.lines[i+1], []byte(fromPrefix)) &&
		bytes.HasPrefix(p.lines[i+2], []byte(toPrefix))
}

func (p *parser) isFromToPair(i int) bool {
	return p.hasLines(i, 2) &&
		bytes.HasPrefix(p.lines[i], []byte("--- ")) &&
		bytes.HasPrefix(p.lines[i+1], []byte("+++ "))
}

func isBinaryMarker(line []byte) bool {
	return bytes.HasPrefix(line, []byte("Binary files")) ||
		bytes.HasPrefix(line, []byte("GIT binary patch"))
}

func isAllZeros(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c != '0' {
			return false
		}
	}
	return true
}

// headerValue returns the trimmed text after prefix.
func headerValue(line []byte, prefix string) string {
	return string(bytes.TrimSpace(line[len(prefix):]))
}

// headerPath returns the path after prefix, unquoting git's C-style quoting.
func headerPath(line []byte, prefix string) []byte {
	v := bytes.TrimSpace(line[len(prefix):])
	return unquotePath(v)
}

// fromToPath extracts the path from a "--- " or "+++ " line. Anything after
// a tab (a timestamp, or git's marker for names with spaces) is dropped.
func fromToPath(line []byte, prefix string) []byte {
	v := line[len(prefix):]
	if i := bytes.IndexByte(v, '\t'); i >= 0 {
		v = v[:i]
	}
	return unquotePath(bytes.TrimRight(v, " \r"))
}

// splitHeaderPaths extracts the origin and destination paths from a
// "diff --git a/X b/Y" line. Unquoted lines are split at the last " b/" so
// that spaces in names survive; a name that itself contains " b/" splits
// at the wrong place, which is a known limitation of the format.
func splitHeaderPaths(line []byte) (orig, dest []byte, ok bool) {
	rest := bytes.TrimPrefix(line, []byte("diff --git "))
	if bytes.HasPrefix(rest, []byte(`"`)) || bytes.HasSuffix(rest, []byte(`"`)) {
		if orig, dest, ok := splitQuotedPaths(rest); ok {
			return orig, dest, true
		}
	}

	idx := bytes.LastIndex(line, destSeparator)
	if idx < 0 {
		return nil, nil, false
	}
	left := line[:idx]
	if !bytes.HasPrefix(left, gitDiffPathPrefix) {
		return nil, nil, false
	}
	return left[len(gitDiffPathPrefix):], line[idx+len(destSeparator):], true
}

// splitQuotedPaths handles headers where git quoted one or both names, as
// in: diff --git "a/tab\there" "b/tab\there".
func splitQuotedPaths(rest []byte) (orig, dest []byte, ok bool) {
	var first, tail []byte
	if rest[0] == '"' {
		var n int
		first, n, ok = cutQuoted(rest)
		if !ok {
			return nil, nil, false
		}
		tail = bytes.TrimLeft(rest[n:], " ")
	} else {
		i := bytes.LastIndex(rest, []byte(` "`))
		if i < 0 {
			return nil, nil, false
		}
		first, tail = rest[:i], rest[i+1:]
	}

	second := tail
	if len(tail) > 0 && tail[0] == '"' {
		var n int
		second, n, ok = cutQuoted(tail)
		if !ok || n != len(tail) {
			return nil, nil, false
		}
	}

	if !bytes.HasPrefix(first, []byte("a/")) || !bytes.HasPrefix(second, []byte("b/")) {
		return nil, nil, false
	}
	return first[2:], second[2:], true
}

// cutQuoted unquotes the quoted token at the start of b and returns the
// unquoted bytes and the number of input bytes consumed.
func cutQuoted(b []byte) ([]byte, int, bool) {
	for i := 1; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '"':
			s, err := strconv.Unquote(string(b[:i+1]))
			if err != nil {
				return nil, 0, false
			}
			return []byte(s), i + 1, true
		}
	}
	return nil, 0, false
}

// unquotePath undoes git's C-style quoting. Unparseable values are
// returned unchanged.
func unquotePath(v []byte) []byte {
	if len(v) < 2 || v[0] != '"' {
		return v
	}
	if s, n, ok := cutQuoted(v); ok && n == len(v) {
		return s
	}
	return v
}

// decodePath converts a raw path to text. An empty path decodes to "".
func decodePath(rp rawPath, field string) (string, error) {
	if !utf8.Valid(rp.b) {
		return "", &EncodingError{Line: rp.line + 1, Field: field, Raw: rp.b}
	}
	return string(rp.b), nil
}

// ensureRequiredFields guarantees the byte fields are present so consumers
// never see nil.
func ensureRequiredFields(fc *FileChange) {
	if fc.Header == nil {
		fc.Header = []byte{}
	}
	if fc.Data == nil {
		fc.Data = []byte{}
	}
}
