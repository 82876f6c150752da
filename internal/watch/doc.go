// Package watch re-parses a diff file whenever it changes on disk.
//
// [Run] uses fsnotify on the file's directory, waits for writes to settle
// for a short debounce period, then reads and parses the file and hands the
// outcome to a callback. Parse and read errors are delivered as updates and
// do not stop the watch; only context cancellation does.
package watch
