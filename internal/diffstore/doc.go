// Package diffstore persists parsed diffs in SQLite.
//
// A stored parse is a [DiffSet]: an ID, a name, the preamble bytes and one
// [FileDiff] row per file change, in source order. Every field of the
// parsed change is kept, including the raw header and data bytes, so
// [Store.Result] reproduces the original parse exactly.
//
// The database uses the pure-Go modernc.org/sqlite driver with foreign
// keys enabled; deleting a diff set removes its file diffs. The schema is
// versioned and migrated forward on [Open].
package diffstore
