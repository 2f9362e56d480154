package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before checking the document.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a document file made by other programs.
// Writes whose checksum was passed to Remember are not reported.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.Mutex
	last [sha256.Size]byte
}

// NewWatcher returns a watcher for the document at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &Watcher{path: abs, logger: logger, debounce: DefaultDebounce}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Remember records the checksum of content we wrote ourselves.
func (w *Watcher) Remember(sum [sha256.Size]byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = sum
}

// Watch is NewWatcher(path, logger).Run(ctx, onChange).
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	return NewWatcher(path, logger).Run(ctx, onChange)
}

// Run watches the document's directory until ctx is cancelled, calling
// onChange after each settled change whose content differs from the last
// known content.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.Remember(Checksum(data))
	}

	w.logger.Debug("watcher: started", slog.String("path", w.path))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
			return
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("watcher: stopped", slog.String("path", w.path))
			return nil

		case <-fire:
			if w.changed() {
				w.logger.Info("watcher: document changed on disk", slog.String("path", w.path))
				onChange()
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// changed reads the document and reports whether its content differs from
// the last known content, recording the new checksum.
func (w *Watcher) changed() bool {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false
	}
	sum := Checksum(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if sum == w.last {
		return false
	}
	w.last = sum
	return true
}
