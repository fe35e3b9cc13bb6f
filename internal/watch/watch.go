// Package watch reruns a function when Go source files change.
package watch

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Run waits after the last change before
// calling the function.
const DefaultDebounce = 200 * time.Millisecond

// Options configures Run.
type Options struct {
	// Dirs are the directories to watch. Subdirectories are not watched.
	Dirs []string

	// Ignore lists base names whose changes are ignored, such as the
	// generated output file.
	Ignore []string

	Debounce time.Duration
	Logger   *zap.Logger
}

// Run watches opts.Dirs until ctx is done. After a burst of changes to .go
// files it calls fn once. Errors from fn are logged and watching continues.
func Run(ctx context.Context, opts Options, fn func(context.Context) error) error {
	if len(opts.Dirs) == 0 {
		return errors.New("watch: no directories")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	for _, dir := range opts.Dirs {
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
		log.Debug("watching", zap.String("dir", dir))
	}

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, opts.Ignore) {
				continue
			}
			log.Debug("change", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(opts.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := fn(ctx); err != nil {
				log.Error("regenerate failed", zap.Error(err))
			}
		}
	}
}

func relevant(ev fsnotify.Event, ignore []string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, ".go") || strings.HasPrefix(base, ".") {
		return false
	}
	return !slices.Contains(ignore, base)
}
