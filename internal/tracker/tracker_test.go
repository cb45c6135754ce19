package tracker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
)

type memLog struct {
	mu     sync.Mutex
	events []trackerlog.Event
	err    error
}

func (m *memLog) Append(events []trackerlog.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *memLog) snapshot() []trackerlog.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trackerlog.Event(nil), m.events...)
}

func (m *memLog) types() []string {
	var types []string
	for _, ev := range m.snapshot() {
		types = append(types, ev.Type)
	}
	return types
}

// quietSpec disables polling so only recorded events reach the log.
func quietSpec() settings.WorkerSpec {
	return settings.WorkerSpec{
		TrackIdeActions:          true,
		TrackKeyboard:            true,
		TrackMouse:               true,
		MouseMoveEventsThreshold: 250 * time.Millisecond,
	}
}

func newTestTracker(log Appender) *Tracker {
	return New(log, WithFlushInterval(time.Hour))
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	tr := newTestTracker(&memLog{})
	for i := 0; i < 3; i++ {
		if err := tr.Stop(); err != nil {
			t.Fatalf("Stop() #%d error: %v", i, err)
		}
	}
	if tr.Running() {
		t.Error("expected tracker to be stopped")
	}
}

func TestStartTwiceFails(t *testing.T) {
	tr := newTestTracker(&memLog{})
	if err := tr.Start(quietSpec()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer tr.Stop()

	if err := tr.Start(quietSpec()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartStopCycle(t *testing.T) {
	log := &memLog{}
	tr := newTestTracker(log)

	for i := 0; i < 3; i++ {
		if err := tr.Start(quietSpec()); err != nil {
			t.Fatalf("Start() #%d error: %v", i, err)
		}
		if !tr.Record(trackerlog.Event{Type: trackerlog.TypeAction, Data: "Run"}) {
			t.Fatalf("expected action to be accepted on cycle %d", i)
		}
		if err := tr.Stop(); err != nil {
			t.Fatalf("Stop() #%d error: %v", i, err)
		}
	}

	if got := len(log.snapshot()); got != 3 {
		t.Errorf("expected 3 events flushed, got %d", got)
	}
}

func TestRecordFiltersBySpec(t *testing.T) {
	tests := []struct {
		name string
		spec settings.WorkerSpec
		want []string
	}{
		{
			name: "everything enabled",
			spec: quietSpec(),
			want: []string{"ide_state", "action", "keyboard", "mouse", "mouse_move"},
		},
		{
			name: "actions only",
			spec: settings.WorkerSpec{TrackIdeActions: true},
			want: []string{"ide_state", "action"},
		},
		{
			name: "keyboard only",
			spec: settings.WorkerSpec{TrackKeyboard: true},
			want: []string{"ide_state", "keyboard"},
		},
		{
			name: "mouse only",
			spec: settings.WorkerSpec{TrackMouse: true},
			want: []string{"ide_state", "mouse", "mouse_move"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &memLog{}
			tr := newTestTracker(log)
			if err := tr.Start(tt.spec); err != nil {
				t.Fatalf("Start() error: %v", err)
			}

			for _, typ := range []string{"ide_state", "action", "keyboard", "mouse", "mouse_move", "unknown"} {
				tr.Record(trackerlog.Event{Type: typ})
			}

			if err := tr.Stop(); err != nil {
				t.Fatalf("Stop() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, log.types()); diff != "" {
				t.Errorf("recorded types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordWhileStoppedDropped(t *testing.T) {
	log := &memLog{}
	tr := newTestTracker(log)

	if tr.Record(trackerlog.Event{Type: trackerlog.TypeAction}) {
		t.Error("expected event to be rejected while stopped")
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if len(log.snapshot()) != 0 {
		t.Error("expected no events written")
	}
}

func TestMouseMoveThreshold(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, 100 * time.Millisecond, 249 * time.Millisecond, 250 * time.Millisecond, 300 * time.Millisecond, 600 * time.Millisecond}

	tests := []struct {
		name      string
		threshold time.Duration
		want      []time.Duration
	}{
		{"250ms", 250 * time.Millisecond, []time.Duration{0, 250 * time.Millisecond, 600 * time.Millisecond}},
		{"zero keeps all", 0, offsets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &memLog{}
			tr := newTestTracker(log)
			if err := tr.Start(settings.WorkerSpec{TrackMouse: true, MouseMoveEventsThreshold: tt.threshold}); err != nil {
				t.Fatalf("Start() error: %v", err)
			}
			for _, off := range offsets {
				tr.Record(trackerlog.Event{Time: base.Add(off), Type: trackerlog.TypeMouseMove})
			}
			// Clicks are never throttled.
			tr.Record(trackerlog.Event{Time: base.Add(time.Millisecond), Type: trackerlog.TypeMouse})
			if err := tr.Stop(); err != nil {
				t.Fatalf("Stop() error: %v", err)
			}

			var got []time.Duration
			for _, ev := range log.snapshot() {
				if ev.Type == trackerlog.TypeMouseMove {
					got = append(got, ev.Time.Sub(base))
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("accepted mouse moves mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordStampsTime(t *testing.T) {
	fixed := time.Date(2024, 3, 3, 3, 3, 3, 0, time.UTC)
	log := &memLog{}
	tr := New(log, WithClock(func() time.Time { return fixed }), WithFlushInterval(time.Hour))

	if err := tr.Start(quietSpec()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	tr.Record(trackerlog.Event{Type: trackerlog.TypeKeyboard, Data: "x"})
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	want := []trackerlog.Event{{Time: fixed, Type: trackerlog.TypeKeyboard, Data: "x"}}
	if diff := cmp.Diff(want, log.snapshot()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPollIdeStateUsesLastFocus(t *testing.T) {
	log := &memLog{}
	tr := newTestTracker(log)
	spec := settings.WorkerSpec{PollIdeState: true, PollIdeStateInterval: 5 * time.Millisecond}

	if err := tr.Start(spec); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	tr.Record(trackerlog.Event{Type: trackerlog.TypeIdeState, Project: "demo", File: "main.go"})
	time.Sleep(60 * time.Millisecond)
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	events := log.snapshot()
	if len(events) < 2 {
		t.Fatalf("expected the pushed event plus polled events, got %d", len(events))
	}
	for _, ev := range events[1:] {
		if ev.Type != trackerlog.TypeIdeState || ev.Project != "demo" || ev.File != "main.go" {
			t.Errorf("unexpected polled event: %+v", ev)
		}
	}
}

func TestNoPollingWhenDisabled(t *testing.T) {
	log := &memLog{}
	tr := newTestTracker(log)
	spec := settings.WorkerSpec{PollIdeState: false, PollIdeStateInterval: time.Millisecond}

	if err := tr.Start(spec); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if n := len(log.snapshot()); n != 0 {
		t.Errorf("expected no polled events, got %d", n)
	}
}

func TestPeriodicFlush(t *testing.T) {
	log := &memLog{}
	tr := New(log, WithFlushInterval(5*time.Millisecond))
	if err := tr.Start(quietSpec()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer tr.Stop()

	tr.Record(trackerlog.Event{Type: trackerlog.TypeAction})

	deadline := time.Now().Add(2 * time.Second)
	for len(log.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected event to be flushed while running")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopSucceedsWhenFlushFails(t *testing.T) {
	log := &memLog{err: errors.New("disk full")}
	tr := newTestTracker(log)
	if err := tr.Start(quietSpec()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	tr.Record(trackerlog.Event{Type: trackerlog.TypeAction})

	if err := tr.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if tr.Running() {
		t.Error("expected tracker stopped even when flush fails")
	}
}

func TestSpec(t *testing.T) {
	tr := newTestTracker(&memLog{})
	if _, running := tr.Spec(); running {
		t.Error("expected not running")
	}

	spec := settings.Default.WorkerSpec()
	if err := tr.Start(spec); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer tr.Stop()

	got, running := tr.Spec()
	if !running {
		t.Error("expected running")
	}
	if diff := cmp.Diff(spec, got); diff != "" {
		t.Errorf("spec mismatch (-want +got):\n%s", diff)
	}
}
