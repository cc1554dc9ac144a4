package store

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"dirigent/internal/logging"
)

// RuleWatcher re-imports YAML rule files into the store when they
// change on disk. Rapid editor saves are debounced.
type RuleWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *DirectiveStore
	dir         string
	debounce    map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	logger      *zap.Logger
}

// NewRuleWatcher builds a watcher over dir. Start must be called before
// any events are processed.
func NewRuleWatcher(dir string, s *DirectiveStore) (*RuleWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RuleWatcher{
		watcher:     fw,
		store:       s,
		dir:         dir,
		debounce:    make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logging.Get(logging.CategoryStore),
	}, nil
}

// Start imports the directory once, then begins watching in a
// goroutine. Non-blocking; calling Start twice is a no-op. On failure
// the fsnotify handle is closed and the watcher stays stopped, so a
// later Stop returns immediately.
func (w *RuleWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	directives, err := LoadRuleDir(w.dir)
	if err != nil {
		w.watcher.Close()
		return err
	}
	if _, err := w.store.UpsertBatch(ctx, directives); err != nil {
		w.watcher.Close()
		return err
	}
	w.logger.Info("rule directory imported",
		zap.String("dir", w.dir),
		zap.Int("directives", len(directives)))

	if err := w.watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		return err
	}

	// The event loop exists from here on; only now may Stop wait on it.
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the event loop to exit. Safe to
// call before Start or more than once.
func (w *RuleWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *RuleWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rule watcher error", zap.Error(err))
		}
	}
}

func (w *RuleWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !isRuleFile(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !w.debounced(event.Name) {
			return
		}
		if _, err := w.store.ImportFile(ctx, event.Name); err != nil {
			w.logger.Warn("rule file re-import failed",
				zap.String("path", event.Name),
				zap.Error(err))
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		n, err := w.store.DeleteBySource(ctx, event.Name)
		if err != nil {
			w.logger.Warn("rule file removal cleanup failed",
				zap.String("path", event.Name),
				zap.Error(err))
			return
		}
		if n > 0 {
			w.logger.Info("rule file removed",
				zap.String("path", event.Name),
				zap.Int("directives", n))
		}
	}
}

// debounced reports whether enough time has passed since the last
// handled event for this path.
func (w *RuleWatcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.debounce[path]; ok && now.Sub(last) < w.debounceDur {
		return false
	}
	// Drop expired entries so the map stays bounded during long
	// watch sessions with churning file names.
	for p, last := range w.debounce {
		if now.Sub(last) >= w.debounceDur {
			delete(w.debounce, p)
		}
	}
	w.debounce[path] = now
	return true
}
