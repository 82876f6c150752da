// Rbdiff parses unified git diffs into per-file change records.
//
// It reads diffs from files, stdin or the local git repository, reports
// each file's paths, revisions and change flags, and can keep parsed diffs
// as diff sets in a local SQLite database. Exit codes are deterministic:
// 0 on success, 2 on usage errors, 3 on malformed input, 4 on other errors.
//
// Usage:
//
//	rbdiff parse change.diff               # parse a diff file
//	git format-patch -1 --stdout | rbdiff parse -
//	rbdiff git staged --format markdown    # parse staged changes
//	rbdiff git commits origin/main..HEAD --store
//	rbdiff git verify change.diff          # check origin blobs exist
//	rbdiff store list                      # list stored diff sets
//	rbdiff watch change.diff               # re-parse on every save
package main
