package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reviewboard/rbdiff/internal/diffparser"
	"github.com/reviewboard/rbdiff/internal/gitctx"
)

// DefaultDebounce is the quiet period after the last write before the file
// is parsed again.
const DefaultDebounce = 200 * time.Millisecond

// Options controls a watch.
type Options struct {
	Debounce     time.Duration
	MaxDiffBytes int
	Parse        diffparser.Options
}

// Update is delivered after each parse of the watched file. Exactly one of
// Result and Err is set.
type Update struct {
	Path   string
	Diff   []byte
	Result *diffparser.Result
	Err    error
	At     time.Time
}

// Run parses path once, then again each time it changes, calling handle with
// every outcome. It blocks until ctx is done and returns nil in that case.
// The parent directory is watched so editors that replace the file on save
// are picked up.
func Run(ctx context.Context, path string, opts Options, handle func(Update)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	slog.Debug("[DEBUG-WATCH] watching", "path", target, "debounce", opts.Debounce)

	handle(parseFile(target, opts))

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(ev.Name) != target || !relevant(ev.Op) {
				continue
			}
			slog.Debug("[DEBUG-WATCH] event", "op", ev.Op.String(), "path", ev.Name)
			timer.Reset(opts.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			slog.Warn("[WARN-WATCH] watcher error", "error", err)

		case <-timer.C:
			handle(parseFile(target, opts))
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

func parseFile(path string, opts Options) Update {
	u := Update{Path: path, At: time.Now()}
	src, err := gitctx.ReadDiff(path, gitctx.DiffOptions{MaxDiffBytes: opts.MaxDiffBytes})
	if err != nil {
		u.Err = err
		return u
	}
	u.Diff = src.Diff
	u.Result, u.Err = diffparser.ParseWithOptions(src.Diff, opts.Parse)
	return u
}
