// Package watch drives incremental re-indexing from file-system
// events. Events are debounced per path so editor save storms coalesce
// into one re-index, and writes are waited out until the file is
// stable.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codexhq/codex/internal/collect"
)

// Debounce and write-stability windows.
const (
	debounceDelay = 200 * time.Millisecond
	stableWindow  = 200 * time.Millisecond
	stablePoll    = 50 * time.Millisecond
	stableTimeout = 5 * time.Second
)

// Reindexer is the single-file re-index entry point the watcher drives.
type Reindexer interface {
	ReindexFile(ctx context.Context, rel string) error
}

// Watcher owns an fsnotify watcher over the non-pruned directory tree
// of a root and funnels debounced events into a Reindexer.
type Watcher struct {
	root    string
	engine  Reindexer
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New returns a Watcher for root. Run starts it.
func New(root string, engine Reindexer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:    root,
		engine:  engine,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Per-file re-index errors are
// logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addTree registers dir and every non-pruned subdirectory.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable: skip
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && collect.PruneDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	// New directories need their own watch before files inside them
	// produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !collect.PruneDir(filepath.Base(event.Name)) {
				_ = w.addTree(fw, event.Name)
			}
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !collect.SupportedExt(event.Name) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	w.schedule(ctx, filepath.ToSlash(rel))
}

// schedule debounces one path: each new event resets its timer, so a
// burst of writes re-indexes once.
func (w *Watcher) schedule(ctx context.Context, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[rel]; ok {
		timer.Stop()
	}
	w.pending[rel] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, rel)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.awaitStable(filepath.Join(w.root, filepath.FromSlash(rel)))
		if err := w.engine.ReindexFile(ctx, rel); err != nil && ctx.Err() == nil {
			w.logger.Warn("reindex failed", "file", rel, "error", err)
		} else {
			w.logger.Debug("reindexed", "file", rel)
		}
	})
}

// awaitStable polls until the file's size and mtime have held still for
// the stability window, so half-written files are not parsed. A missing
// file returns immediately (the re-index path handles deletion).
func (w *Watcher) awaitStable(abs string) {
	deadline := time.Now().Add(stableTimeout)
	var lastSize int64 = -1
	var lastMod time.Time
	stableSince := time.Now()

	for time.Now().Before(deadline) {
		info, err := os.Stat(abs)
		if err != nil {
			return
		}
		if info.Size() != lastSize || !info.ModTime().Equal(lastMod) {
			lastSize, lastMod = info.Size(), info.ModTime()
			stableSince = time.Now()
		} else if time.Since(stableSince) >= stableWindow {
			return
		}
		time.Sleep(stablePoll)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for rel, timer := range w.pending {
		timer.Stop()
		delete(w.pending, rel)
	}
}
