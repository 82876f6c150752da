// Package diffparser turns a unified git diff into per-file change records.
//
// [Parse] scans the diff once, line by line, and returns a [Result] holding
// any preamble bytes plus one [FileChange] per file section. Each record keeps
// the raw header and body bytes verbatim; only the file paths are decoded as
// UTF-8 text. Hunk bodies are not interpreted here (see package diffview).
//
// Sections with no content that are not new, deleted, moved or copied are
// dropped, so pure mode changes are omitted unless [Options.KeepModeChanges]
// is set.
//
// Parsing is side-effect free: every call builds its own parser state, so
// concurrent calls on different buffers are safe.
package diffparser
