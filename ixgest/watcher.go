package ixgest

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// DefaultDebounce is the quiet period after the last file event before a batch is released
const DefaultDebounce = 500 * time.Millisecond

// Watcher collects files created or written in a folder and releases them
// in batches once the folder has been quiet for the debounce period.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.SugaredLogger
}

// NewWatcher starts watching dir. debounce <= 0 uses DefaultDebounce.
func NewWatcher(dir string, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		debounce: debounce,
		logger:   logger.OrNop(log).Named("watch"),
	}, nil
}

// Run calls onBatch with the sorted paths seen since the previous batch.
// onBatch runs on the watch goroutine, so batches never overlap.
// Run returns when ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onBatch func(paths []string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.logger.Debugw("File event", logger.FieldPath, event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			w.logger.Infow("New input files", logger.FieldCount, len(paths))
			onBatch(paths)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
