// Package output formats diff reports for display or machine consumption.
//
// Five formats are supported:
//   - text: per-file summary for the terminal (default)
//   - json: the full structured report, including header and body text
//   - markdown: summary tables plus one fenced diff block per file
//   - html: the markdown report rendered to a standalone page with goldmark
//   - sidebyside: two-column view of every hunk with changed regions marked
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*review.Report]. [WriteReport]
// handles destination selection.
package output
