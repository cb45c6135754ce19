// Package trackerlog writes tracker events to a CSV file.
package trackerlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the name of the log file inside the log directory.
const FileName = "ide-events.csv"

// Event types.
const (
	TypeIdeState  = "ide_state"
	TypeAction    = "action"
	TypeKeyboard  = "keyboard"
	TypeMouse     = "mouse"
	TypeMouseMove = "mouse_move"
)

// Event is one row in the tracking log.
type Event struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Data    string    `json:"data,omitempty"`
	Project string    `json:"project,omitempty"`
	File    string    `json:"file,omitempty"`
}

// Record returns the CSV columns for e.
func (e Event) Record() []string {
	return []string{e.Time.Format(time.RFC3339Nano), e.Type, e.Data, e.Project, e.File}
}

// Log appends events to a CSV file.
type Log struct {
	dir string

	mu sync.Mutex
}

// New returns a Log writing into dir.
func New(dir string) *Log {
	return &Log{dir: dir}
}

// CurrentLogFile returns the absolute path of the log file.
func (l *Log) CurrentLogFile() string {
	path := filepath.Join(l.dir, FileName)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Append writes events to the end of the log, creating it if needed.
func (l *Log) Append(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(l.CurrentLogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open tracking log: %w", err)
	}

	w := csv.NewWriter(f)
	for _, ev := range events {
		if err := w.Write(ev.Record()); err != nil {
			f.Close()
			return fmt.Errorf("write tracking log: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush tracking log: %w", err)
	}
	return f.Close()
}

// Size returns the log file size in bytes; 0 if it does not exist yet.
func (l *Log) Size() (int64, error) {
	info, err := os.Stat(l.CurrentLogFile())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadAll parses every event in the log.
func (l *Log) ReadAll() ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.CurrentLogFile())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open tracking log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tracking log: %w", err)
	}

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		ts, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", rec[0], err)
		}
		events = append(events, Event{Time: ts, Type: rec[1], Data: rec[2], Project: rec[3], File: rec[4]})
	}
	return events, nil
}
