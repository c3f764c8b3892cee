// Package watcher turns plan files dropped into the plans directory
// into queued tasks. It watches for new markdown files and debounces
// events so editors that write in several bursts trigger one task.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Plan identifies a plan file ready to run.
type Plan struct {
	// Path is relative to the working tree root.
	Path string

	// Slug is the file name without its extension.
	Slug string
}

// Watcher emits a Plan for each new markdown file in the plans
// directory. Events are debounced per path.
type Watcher struct {
	root     string
	plansDir string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	plans    chan Plan
	stop     chan struct{}
	logger   *logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over plansDir, resolved relative to root. The
// directory is created when missing so the watch can be established on
// a fresh checkout.
func New(root, plansDir string, debounce time.Duration, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	abs := filepath.Join(root, plansDir)
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating plans directory %s: %w", abs, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}

	return &Watcher{
		root:     root,
		plansDir: plansDir,
		debounce: debounce,
		watcher:  fsw,
		plans:    make(chan Plan, 16),
		stop:     make(chan struct{}),
		logger:   logger.Named("watcher"),
		pending:  map[string]*time.Timer{},
	}, nil
}

// Start begins processing events in a background goroutine. Call Stop
// to release the underlying watch.
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Info(ctx, "watching for plans",
		zap.String("dir", w.plansDir),
		zap.Duration("debounce", w.debounce),
	)
	go w.processEvents(ctx)
}

// Stop tears the watcher down. Pending debounce timers are cancelled.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// Plans returns the channel of debounced plan arrivals.
func (w *Watcher) Plans() <-chan Plan {
	return w.plans
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isPlanFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watch error", zap.Error(err))
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a path. Each write
// burst pushes the deadline out; the plan fires once the file has been
// quiet for the full debounce window.
func (w *Watcher) schedule(ctx context.Context, absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[absPath]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.logger.Debug(ctx, "plan detected", zap.String("path", absPath))
	w.pending[absPath] = time.AfterFunc(w.debounce, func() {
		w.emit(ctx, absPath)
	})
}

func (w *Watcher) emit(ctx context.Context, absPath string) {
	w.mu.Lock()
	delete(w.pending, absPath)
	w.mu.Unlock()

	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		w.logger.Warn(ctx, "resolving plan path", zap.String("path", absPath), zap.Error(err))
		return
	}
	plan := Plan{
		Path: filepath.ToSlash(rel),
		Slug: slugFromPath(absPath),
	}

	select {
	case w.plans <- plan:
		w.logger.Info(ctx, "plan ready", zap.String("path", plan.Path), zap.String("slug", plan.Slug))
	default:
		w.logger.Warn(ctx, "plan channel full, dropping", zap.String("path", plan.Path))
	}
}

func isPlanFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func slugFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
