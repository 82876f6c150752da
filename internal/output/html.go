package output

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/reviewboard/rbdiff/internal/review"
)

// HTMLWriter renders the markdown report as a standalone HTML page.
type HTMLWriter struct {
	md goldmark.Markdown
}

// NewHTMLWriter returns an HTMLWriter with GitHub-flavored tables enabled.
func NewHTMLWriter() *HTMLWriter {
	return &HTMLWriter{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

const htmlStyle = `body{font-family:sans-serif;max-width:72em;margin:2em auto;padding:0 1em}
table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.2em .6em}
pre{background:#f6f8fa;padding:.6em;overflow-x:auto}`

func (h *HTMLWriter) Write(w io.Writer, report *review.Report) error {
	var src bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&src, report); err != nil {
		return err
	}

	ew := &errWriter{w: w}
	ew.printf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	ew.printf("<title>%s</title>\n", html.EscapeString(fmt.Sprintf("rbdiff: %s", report.Inputs.Mode)))
	ew.printf("<style>\n%s\n</style>\n</head>\n<body>\n", htmlStyle)
	if ew.err != nil {
		return ew.err
	}
	if err := h.md.Convert(src.Bytes(), w); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	ew.printf("</body>\n</html>\n")
	return ew.err
}
