package watcher

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a fixed list of files with fsnotify and emits
// debounced FileEvents on Events(). It does not recurse into directories
// or apply any ignore-pattern matching - every path given to New is
// watched directly.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
}

// New creates a FileWatcher over paths. Paths that don't exist yet are
// skipped; fsnotify can only watch files that already exist, and a
// missing WordNet dataset or category seed is a valid, already-handled
// configuration (see config.loadWordNet/config.CategoriesConfig).
func New(paths []string, opts Options, logger *slog.Logger) (*FileWatcher, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			logger.Debug("watcher: skipping path", slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	return &FileWatcher{
		watcher:   fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		logger:    logger,
	}, nil
}

// Run translates fsnotify events into debounced FileEvents until ctx is
// canceled, then stops the debouncer and closes the underlying watcher.
func (w *FileWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	defer w.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.debouncer.Add(FileEvent{Path: ev.Name, Operation: translateOp(ev.Op)})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Events returns the debounced, coalesced event batches.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

func translateOp(op fsnotify.Op) Operation {
	switch {
	case op&fsnotify.Create != 0:
		return OpCreate
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return OpDelete
	default:
		return OpModify
	}
}
