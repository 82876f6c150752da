// Package cli wires together the Cobra command tree for the rbdiff binary.
//
// It defines the root command and all subcommands (parse, git, store, watch,
// config, cache, version), binds flags, reads configuration, runs diffs
// through the parser, cache, store and output writers, and returns
// deterministic exit codes: 0 on success, 2 on usage errors, 3 when the
// input is not a parseable git diff and 4 on any other failure.
package cli
