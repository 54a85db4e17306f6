package trigger

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// pollInterval is how often settled events are checked for emission.
const pollInterval = 100 * time.Millisecond

// HandlerFunc receives one classified, debounced filesystem event. Handlers
// run on the watch goroutine, so a slow handler delays later events.
type HandlerFunc func(ctx context.Context, event core.TriggerEvent, kind core.TriggerKind)

// Watcher converts filesystem writes under the configured paths into trigger
// events. Rapid saves of the same file collapse into one event per debounce
// window; files whose extension classifies as unknown never reach the
// handler.
type Watcher struct {
	paths      []string
	debounce   time.Duration
	classifier *Classifier
	handler    HandlerFunc
	logger     *logging.Logger

	fw      *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]pendingEvent
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type pendingEvent struct {
	op string
	at time.Time
}

// NewWatcher creates a watcher over cfg.Paths. handler must not be nil;
// logger may be nil.
func NewWatcher(cfg config.WatchConfig, classifier *Classifier, handler HandlerFunc, logger *logging.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watcher needs a handler")
	}
	if classifier == nil {
		classifier = NewClassifier(cfg.CodeExtensions, cfg.DocExtensions)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	paths := cfg.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	return &Watcher{
		paths:      paths,
		debounce:   cfg.DebounceDuration(),
		classifier: classifier,
		handler:    handler,
		logger:     logger.WithComponent("fswatch"),
		fw:         fw,
		pending:    make(map[string]pendingEvent),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start registers the configured paths and begins the watch loop in a
// goroutine. It fails if no directory could be watched at all.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	watched := 0
	for _, path := range w.paths {
		watched += w.addRecursive(path)
	}
	if watched == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.fw.Close()
		return fmt.Errorf("no watchable directories under %v", w.paths)
	}
	w.logger.Info("watching for changes", "directories", watched, "debounce", w.debounce.String())

	go w.run(ctx)
	return nil
}

// Stop halts the watch loop and releases the underlying watcher. Safe to call
// once after a successful Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fw.Close(); err != nil {
		w.logger.Warn("closing watcher", "error", err)
	}
}

// WatchedDirs returns the directories currently being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fw.WatchList()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-ticker.C:
			w.emitSettled(ctx)
		}
	}
}

// handleEvent records one raw filesystem event for debounced emission.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "write"
	default:
		// Removes, renames and chmods never start a request.
		return
	}

	// New directories join the watch; their files matter from now on.
	if op == "create" {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(event.Name)) {
				w.addRecursive(event.Name)
			}
			return
		}
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}
	kind := w.classifier.Classify(core.TriggerEvent{Path: event.Name})
	if kind == core.TriggerUnknown {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = pendingEvent{op: op, at: time.Now()}
	w.mu.Unlock()
}

// emitSettled hands every event older than the debounce window to the
// handler.
func (w *Watcher) emitSettled(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var settled []core.TriggerEvent
	for path, pe := range w.pending {
		if now.Sub(pe.at) < w.debounce {
			continue
		}
		settled = append(settled, core.TriggerEvent{
			Source: "fswatch",
			Path:   path,
			Op:     pe.op,
		})
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, event := range settled {
		kind := w.classifier.Classify(event)
		w.logger.Debug("trigger settled", "path", event.Path, "op", event.Op, "kind", string(kind))
		w.handler(ctx, event, kind)
	}
}

// addRecursive watches root and every non-hidden directory below it,
// returning how many directories were added.
func (w *Watcher) addRecursive(root string) int {
	added := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
			return nil
		}
		added++
		return nil
	})
	return added
}

// skipDir excludes dependency trees and hidden directories such as .git and
// .conclave. Without the latter, history writes would trigger fresh requests.
func skipDir(name string) bool {
	if name == "node_modules" || name == "vendor" {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
