package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/metrics"
)

type EventType string

const (
	EventStatus  EventType = "status"
	EventNewScan EventType = "newscan"
	EventError   EventType = "error"
)

// Event is one notification pushed to the presentation layer.
type Event struct {
	Type    EventType   `json:"type"`
	RunID   string      `json:"runId,omitempty"`
	Message string      `json:"message,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Status describes the current watch subscription.
type Status struct {
	Watching  bool   `json:"watching"`
	Path      string `json:"path"`
	StartedAt string `json:"startedAt,omitempty"`
	LastRunAt string `json:"lastRunAt,omitempty"`
}

// RunFunc executes one check-in pipeline run for a detected file change and
// returns the payload to publish. Overlapping runs are possible when changes
// arrive faster than the remote calls complete; last write wins downstream.
type RunFunc func(ctx context.Context, runID string) (interface{}, error)

// Watcher watches the scanner export file and triggers one pipeline run per
// detected change, debounced so a burst of writes counts once.
type Watcher struct {
	path     string
	debounce time.Duration
	run      RunFunc
	logger   logger.Logger
	events   chan Event

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	cancel    context.CancelFunc
	watching  bool
	startedAt time.Time
	lastRunAt time.Time
}

func New(path string, debounce time.Duration, run RunFunc, log logger.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: debounce,
		run:      run,
		logger:   log.WithFields(map[string]interface{}{"component": "watcher", "path": path}),
		events:   make(chan Event, 16),
	}
}

// Events returns the channel carrying status, newscan and error events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the export file's directory. Watching the directory
// rather than the file survives editors and devices that replace the file
// on each export.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewWatcherFailedError(err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return errors.NewWatcherFailedError(fmt.Errorf("watch %s: %w", dir, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.watching = true
	w.startedAt = time.Now()

	go w.loop(runCtx, fsw)

	w.emit(Event{Type: EventStatus, Message: "watching started"})
	w.logger.Info("export watch started", nil)
	return nil
}

// Stop ends the watch subscription. Safe to call when not watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	w.cancel()
	err := w.fsw.Close()
	w.fsw = nil
	w.watching = false

	w.emit(Event{Type: EventStatus, Message: "watching stopped"})
	w.logger.Info("export watch stopped", nil)

	if err != nil {
		return errors.NewWatcherFailedError(err)
	}
	return nil
}

// Status reports whether the watcher is active and when it last ran.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := Status{
		Watching: w.watching,
		Path:     w.path,
	}
	if !w.startedAt.IsZero() {
		st.StartedAt = w.startedAt.Format(time.RFC3339)
	}
	if !w.lastRunAt.IsZero() {
		st.LastRunAt = w.lastRunAt.Format(time.RFC3339)
	}
	return st
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	target := filepath.Base(w.path)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce: scanner devices write the export in several chunks.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.fire(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", map[string]interface{}{"error": err.Error()})
			metrics.WatchEvents.WithLabelValues(string(EventError)).Inc()
			w.emit(Event{Type: EventError, Message: err.Error()})
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	runID := uuid.NewString()

	w.mu.Lock()
	w.lastRunAt = time.Now()
	w.mu.Unlock()

	payload, err := w.run(ctx, runID)
	if err != nil {
		w.logger.Error("pipeline run failed", map[string]interface{}{
			"runId": runID,
			"error": err.Error(),
		})
		metrics.WatchEvents.WithLabelValues(string(EventError)).Inc()
		w.emit(Event{Type: EventError, RunID: runID, Message: err.Error()})
		return
	}

	metrics.WatchEvents.WithLabelValues(string(EventNewScan)).Inc()
	w.emit(Event{Type: EventNewScan, RunID: runID, Payload: payload})
}

// emit never blocks: a slow or absent consumer drops the oldest semantics in
// favor of keeping the watch loop live.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("event channel full, dropping event", map[string]interface{}{
			"type": string(ev.Type),
		})
	}
}
