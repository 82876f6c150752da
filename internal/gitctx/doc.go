// Package gitctx obtains raw unified diffs for parsing.
//
// Diffs come from a file or stdin ([ReadDiff]) or from git itself
// ([Unstaged], [Staged], [Commit], [Range]). Git is always invoked with
// --full-index --no-color --binary so the output carries full blob IDs and
// binary patches. Diff bytes are passed through untouched; a diff larger
// than the configured limit is rejected with [ErrDiffTooLarge] rather than
// cut mid-section.
//
// [ListCommits] returns the ordered list of commits in a revision range for
// per-commit ingestion, and [FilterChanges] applies include/exclude globs
// to parsed file changes.
//
// [GetFile] and [FileExists] look up a file at a blob ID or HEAD with git
// cat-file, and [VerifyChanges] uses them to check that every origin
// revision in a parsed diff is present in the repository.
package gitctx
