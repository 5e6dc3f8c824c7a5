package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"levee/internal/logging"
)

// ReloadFunc is called with the path of a policy file that settled past the
// debounce window. A failed reload should keep the previous table; the
// watcher never aborts the run.
type ReloadFunc func(path string)

// PolicyWatcher hot-reloads hand-authored policy files (role tables, keyword
// dictionaries) while a long simulation runs, so a domain owner can correct
// a table without restarting.
type PolicyWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	paths       map[string]bool
	reload      ReloadFunc
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewPolicyWatcher creates a watcher for the given files.
func NewPolicyWatcher(paths []string, reload ReloadFunc) (*PolicyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	pw := &PolicyWatcher{
		watcher:     w,
		paths:       make(map[string]bool, len(paths)),
		reload:      reload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		pw.paths[abs] = true
	}
	return pw, nil
}

// Start begins watching. Non-blocking; events are handled in a goroutine.
// Editors replace files rather than writing in place, so the parent
// directory is watched and events are filtered by path.
func (pw *PolicyWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = true
	pw.mu.Unlock()

	dirs := make(map[string]bool)
	for p := range pw.paths {
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := pw.watcher.Add(d); err != nil {
			logging.Get(logging.CategoryBoot).Warn("policy watcher: cannot watch %s: %v", d, err)
		}
	}

	go pw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (pw *PolicyWatcher) Stop() {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return
	}
	pw.running = false
	pw.mu.Unlock()

	close(pw.stopCh)
	<-pw.doneCh
	pw.watcher.Close()
}

func (pw *PolicyWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryBoot).Error("policy watcher: %v", err)
		case <-ticker.C:
			pw.processDebounced()
		}
	}
}

func (pw *PolicyWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		abs = event.Name
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	if !pw.paths[abs] {
		return
	}
	pw.debounceMap[abs] = time.Now()
}

func (pw *PolicyWatcher) processDebounced() {
	pw.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range pw.debounceMap {
		if now.Sub(at) >= pw.debounceDur {
			settled = append(settled, path)
			delete(pw.debounceMap, path)
		}
	}
	pw.mu.Unlock()

	for _, path := range settled {
		logging.Get(logging.CategoryBoot).Info("policy file changed, reloading: %s", path)
		pw.reload(path)
	}
}
