package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/reviewboard/rbdiff/internal/review"
)

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "markdown", "html", "sidebyside"}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "html":
		return NewHTMLWriter(), nil
	case "sidebyside":
		return &SideBySideWriter{Width: defaultColumnWidth}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want one of %v)", format, Formats)
	}
}

// WriteReport renders the report to stdout, or to outPath when set. A file
// is rendered next to its destination and renamed into place, so a reader
// never sees a half-written report.
func WriteReport(report *review.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if outPath == "" || outPath == "-" {
		bw := bufio.NewWriter(os.Stdout)
		if err := writer.Write(bw, report); err != nil {
			return err
		}
		return bw.Flush()
	}

	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	tmpPath := tmp.Name()
	bw := bufio.NewWriter(tmp)
	if err := writer.Write(bw, report); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing output file: %w", err)
	}
	return nil
}
