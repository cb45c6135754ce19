// Package tracker records IDE activity events while tracking is on.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
)

// ErrAlreadyRunning is returned by Start when the tracker has not been stopped.
var ErrAlreadyRunning = errors.New("tracker already running")

const defaultFlushInterval = time.Second

// Appender persists batches of events.
type Appender interface {
	Append(events []trackerlog.Event) error
}

// Tracker filters incoming events by the current WorkerSpec, polls IDE state
// on an interval and flushes everything to an Appender.
type Tracker struct {
	log           Appender
	now           func() time.Time
	flushInterval time.Duration

	mu            sync.Mutex
	running       bool
	spec          settings.WorkerSpec
	pending       *queue.Queue
	lastMouseMove time.Time
	project       string
	file          string
	cancel        context.CancelFunc
	done          chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithFlushInterval sets how often pending events are written while running.
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracker) { t.flushInterval = d }
}

// New creates a stopped Tracker writing to log.
func New(log Appender, opts ...Option) *Tracker {
	t := &Tracker{
		log:           log,
		now:           time.Now,
		flushInterval: defaultFlushInterval,
		pending:       queue.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins tracking with spec.
func (t *Tracker) Start(spec settings.WorkerSpec) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.running = true
	t.spec = spec
	t.lastMouseMove = time.Time{}
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.run(ctx, spec, t.done)

	slog.Info("tracker started",
		"poll_ide_state", spec.PollIdeState,
		"poll_interval", spec.PollIdeStateInterval,
		"track_ide_actions", spec.TrackIdeActions,
		"track_keyboard", spec.TrackKeyboard,
		"track_mouse", spec.TrackMouse,
	)
	return nil
}

// Stop ends tracking and writes any pending events. Stopping a stopped
// tracker does nothing. A failed final write is logged; the tracker is
// stopped either way.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.cancel()
	done := t.done
	t.mu.Unlock()

	<-done
	slog.Info("tracker stopped")
	if err := t.flush(); err != nil {
		slog.Error("failed to write tracking log", "error", err)
	}
	return nil
}

// Running reports whether the tracker is started.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Spec returns the spec the tracker was last started with and whether it
// is running.
func (t *Tracker) Spec() (settings.WorkerSpec, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spec, t.running
}

// Record queues ev if the tracker is running and the spec allows its type.
// It reports whether the event was accepted.
func (t *Tracker) Record(ev trackerlog.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	if ev.Time.IsZero() {
		ev.Time = t.now()
	}

	switch ev.Type {
	case trackerlog.TypeIdeState:
		t.project, t.file = ev.Project, ev.File
	case trackerlog.TypeAction:
		if !t.spec.TrackIdeActions {
			return false
		}
	case trackerlog.TypeKeyboard:
		if !t.spec.TrackKeyboard {
			return false
		}
	case trackerlog.TypeMouse:
		if !t.spec.TrackMouse {
			return false
		}
	case trackerlog.TypeMouseMove:
		if !t.spec.TrackMouse {
			return false
		}
		threshold := t.spec.MouseMoveEventsThreshold
		if threshold > 0 && !t.lastMouseMove.IsZero() && ev.Time.Sub(t.lastMouseMove) < threshold {
			return false
		}
		t.lastMouseMove = ev.Time
	default:
		return false
	}

	t.pending.Add(ev)
	return true
}

func (t *Tracker) run(ctx context.Context, spec settings.WorkerSpec, done chan struct{}) {
	defer close(done)

	flushTicker := time.NewTicker(t.flushInterval)
	defer flushTicker.Stop()

	var pollC <-chan time.Time
	if spec.PollIdeState && spec.PollIdeStateInterval > 0 {
		pollTicker := time.NewTicker(spec.PollIdeStateInterval)
		defer pollTicker.Stop()
		pollC = pollTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollC:
			t.pollIdeState()
		case <-flushTicker.C:
			if err := t.flush(); err != nil {
				slog.Error("failed to write tracking log", "error", err)
			}
		}
	}
}

func (t *Tracker) pollIdeState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending.Add(trackerlog.Event{
		Time:    t.now(),
		Type:    trackerlog.TypeIdeState,
		Project: t.project,
		File:    t.file,
	})
}

func (t *Tracker) flush() error {
	t.mu.Lock()
	n := t.pending.Length()
	if n == 0 {
		t.mu.Unlock()
		return nil
	}
	events := make([]trackerlog.Event, 0, n)
	for t.pending.Length() > 0 {
		events = append(events, t.pending.Remove().(trackerlog.Event))
	}
	t.mu.Unlock()

	slog.Debug("flushing tracker events", "count", len(events))
	return t.log.Append(events)
}
