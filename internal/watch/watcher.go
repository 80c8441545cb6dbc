// Package watch turns a drop directory into a pipeline intake. Request
// documents copied into the directory are picked up by a filesystem watcher,
// debounced until the writer has settled, and submitted to the engine. A
// .smithignore file in the directory excludes documents by name.
package watch

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

	"github.com/fyrsmithlabs/themesmith/internal/ignore"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

const (
	// DefaultDebounce is how long a file must sit unchanged before it is
	// submitted. Editors and network copies write in bursts.
	DefaultDebounce = 500 * time.Millisecond

	sweepInterval = 100 * time.Millisecond
	requestGlob   = "*.md"
	eventBuffer   = 16
)

// EventType classifies watcher events.
type EventType int

const (
	// EventSubmitted indicates a request document was picked up and a run
	// started.
	EventSubmitted EventType = iota

	// EventFinished indicates the run for a document completed.
	EventFinished

	// EventFailed indicates the run for a document returned an error.
	EventFailed
)

// Event reports the progress of one watched request document.
type Event struct {
	Type       EventType
	Path       string
	PipelineID string
	OutputPath string
	Err        error
	Timestamp  time.Time
}

// Runner runs a pipeline for a request document.
type Runner interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*report.Report, error)
}

// Config configures the watcher.
type Config struct {
	// Dir is the directory to watch for request documents.
	Dir string

	// Debounce is the settle window before a changed file is submitted.
	// Zero uses DefaultDebounce.
	Debounce time.Duration
}

// Watcher submits request documents dropped into a directory. Rewriting an
// existing document resubmits it as a fresh run.
type Watcher struct {
	logger   *logging.Logger
	runner   Runner
	dir      string
	debounce time.Duration

	watcher *fsnotify.Watcher
	events  chan Event
	stop    chan struct{}
	done    chan struct{}
	runs    sync.WaitGroup

	mu      sync.Mutex
	running bool

	// pending maps a path to its last write time. Touched only from the
	// loop goroutine.
	pending map[string]time.Time

	// ignores excludes documents named by the directory's .smithignore.
	// Loaded in Start, reloaded by the loop goroutine when the file
	// changes.
	ignores *ignore.Matcher
}

// New creates a watcher for cfg.Dir.
func New(logger *logging.Logger, runner Runner, cfg Config) (*Watcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		logger:   logger.Named("watch"),
		runner:   runner,
		dir:      cfg.Dir,
		debounce: debounce,
		watcher:  fw,
		events:   make(chan Event, eventBuffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]time.Time),
		ignores:  &ignore.Matcher{},
	}, nil
}

// Events returns the channel watcher events are delivered on. The channel is
// closed by Stop. Events are dropped if the consumer falls behind.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start creates the drop directory if needed and begins watching it. The
// context cancels in-flight runs on shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.reloadIgnores(ctx)

	w.logger.Info(ctx, "watching for request documents",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce))

	go w.loop(ctx)
	return nil
}

// Stop halts the watcher, waits for in-flight runs, and closes the events
// channel.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}

	w.mu.Lock()
	started := w.running
	w.mu.Unlock()
	if started {
		<-w.done
	}
	w.runs.Wait()
	close(w.events)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.record(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "filesystem watcher error", zap.Error(err))
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// record notes a create or write so the sweep can submit the file once it
// settles.
func (w *Watcher) record(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	base := filepath.Base(ev.Name)
	if base == ignore.FileName {
		w.reloadIgnores(ctx)
		return
	}
	if strings.HasPrefix(base, ".") {
		return
	}
	if ok, _ := filepath.Match(requestGlob, base); !ok {
		return
	}
	if w.ignores.Match(base) {
		return
	}
	w.pending[ev.Name] = time.Now()
}

// reloadIgnores reads the drop directory's ignore file. A broken file
// keeps the previous patterns.
func (w *Watcher) reloadIgnores(ctx context.Context) {
	m, err := ignore.Load(filepath.Join(w.dir, ignore.FileName))
	if err != nil {
		w.logger.Warn(ctx, "failed to read ignore file",
			zap.String("file", ignore.FileName),
			zap.Error(err))
		return
	}
	w.ignores = m
	if m.Len() > 0 {
		w.logger.Info(ctx, "loaded ignore patterns",
			zap.String("file", ignore.FileName),
			zap.Int("patterns", m.Len()))
	}
}

// sweep submits every pending file whose last write is older than the
// debounce window.
func (w *Watcher) sweep(ctx context.Context) {
	now := time.Now()
	for path, last := range w.pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		w.submit(ctx, path)
	}
}

func (w *Watcher) submit(ctx context.Context, path string) {
	w.logger.Info(ctx, "submitting request document", zap.String("path", path))
	w.emit(Event{Type: EventSubmitted, Path: path, Timestamp: time.Now()})

	w.runs.Add(1)
	go func() {
		defer w.runs.Done()

		rep, err := w.runner.Run(ctx, pipeline.RunRequest{RequestPath: path})
		if err != nil {
			w.logger.Error(ctx, "watched run failed",
				zap.String("path", path),
				zap.Error(err))
			w.emit(Event{Type: EventFailed, Path: path, Err: err, Timestamp: time.Now()})
			return
		}

		w.logger.Info(ctx, "watched run finished",
			zap.String("path", path),
			zap.String("pipeline_id", rep.PipelineID),
			zap.String("status", string(rep.Status)))
		w.emit(Event{
			Type:       EventFinished,
			Path:       path,
			PipelineID: rep.PipelineID,
			OutputPath: rep.OutputPath,
			Timestamp:  time.Now(),
		})
	}()
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		// Consumer fell behind; the state store remains authoritative.
	}
}
