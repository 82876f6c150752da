package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/reviewboard/rbdiff/internal/review"
)

// JSONWriter outputs the full report as indented JSON. Diff text is written
// without HTML escaping so bodies stay byte-comparable with the source.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}
