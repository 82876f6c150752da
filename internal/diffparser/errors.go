package diffparser

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDiff matches any *MalformedDiffError.
	ErrMalformedDiff = errors.New("malformed diff")
	// ErrEncoding matches any *EncodingError.
	ErrEncoding = errors.New("invalid path encoding")
)

// MalformedDiffError reports input that is not a recognizable git diff.
type MalformedDiffError struct {
	Line   int // 1-based; 0 when not tied to a line
	Reason string
}

func (e *MalformedDiffError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed diff at line %d: %s", e.Line, e.Reason)
	}
	return "malformed diff: " + e.Reason
}

func (e *MalformedDiffError) Is(target error) bool {
	return target == ErrMalformedDiff
}

// EncodingError reports a file path that is not valid UTF-8.
type EncodingError struct {
	Line  int
	Field string // "origPath" or "newPath"
	Raw   []byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("line %d: %s %q is not valid UTF-8", e.Line, e.Field, e.Raw)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
