// Package review defines the report produced for a parsed diff.
//
// [BuildReport] turns a [diffparser.Result] into a [Report]: one
// [FileEntry] per file change with its paths, revisions, status, flags,
// line counts and hunk count, plus a [Summary] of counts by status and a
// run ID. Output writers render the report; redaction rewrites the entry
// diff text before rendering.
package review
