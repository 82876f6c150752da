// Package cache provides a file-based cache of diff parse results.
//
// Cache entries are keyed by a SHA-256 hash of the parser options and the
// raw diff bytes, so the same diff parsed with different options gets its
// own entry. Each entry stores the JSON-encoded [diffparser.Result] with a
// creation timestamp and a TTL (in seconds). Expired or unreadable entries
// are removed on read.
//
// The default cache directory is $XDG_CACHE_HOME/rbdiff (or the
// OS-appropriate equivalent).
package cache
