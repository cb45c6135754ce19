package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	units "github.com/docker/go-units"

	"github.com/jandubois/activity-tracker/internal/plugin"
	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
)

// Limits for a single POST /api/events request.
const (
	maxEventBatch     = 10000
	maxEventBodyBytes = 4 << 20
)

// StateResponse is returned by GET /api/state and by the mutation endpoints.
type StateResponse struct {
	Config         settings.Config `json:"config"`
	Revision       int64           `json:"revision"`
	UpdatedAt      time.Time       `json:"updated_at"`
	TrackerRunning bool            `json:"tracker_running"`
	PollInterval   string          `json:"poll_interval"`
	LogFile        string          `json:"log_file"`
	LogSizeBytes   int64           `json:"log_size_bytes"`
	LogSize        string          `json:"log_size"`
}

// EventsResponse is returned by POST /api/events.
type EventsResponse struct {
	Received       int  `json:"received"`
	Accepted       int  `json:"accepted"`
	TrackerRunning bool `json:"tracker_running"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleToggleTracking(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ToggleTracking(r.Context()); err != nil {
		s.mutationError(w, "toggle tracking", err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, "no settings given", http.StatusBadRequest)
		return
	}
	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.ctrl.Update(r.Context(), patch.Apply); err != nil {
		s.mutationError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleRecordEvents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBodyBytes)

	var events []trackerlog.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(events) > maxEventBatch {
		http.Error(w, "too many events", http.StatusRequestEntityTooLarge)
		return
	}

	resp := EventsResponse{Received: len(events)}
	for _, ev := range events {
		if s.events.Record(ev) {
			resp.Accepted++
		}
	}
	resp.TrackerRunning = s.events.Running()

	slog.Debug("events recorded", "received", resp.Received, "accepted", resp.Accepted)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownloadLog(w http.ResponseWriter, r *http.Request) {
	path := s.log.CurrentLogFile()
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "tracking log not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, path)
}

func (s *Server) handleOpenLog(w http.ResponseWriter, r *http.Request) {
	s.openLog(w, s.ctrl.OpenTrackingLogFile)
}

func (s *Server) handleOpenLogFolder(w http.ResponseWriter, r *http.Request) {
	s.openLog(w, s.ctrl.OpenTrackingLogFolder)
}

func (s *Server) openLog(w http.ResponseWriter, open func() error) {
	if err := open(); err != nil {
		if errors.Is(err, plugin.ErrNoTrackerLog) {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened", "log_file": s.log.CurrentLogFile()})
}

func (s *Server) stateResponse() StateResponse {
	cfg, revision := s.Observed()

	s.mu.RLock()
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	resp := StateResponse{
		Config:         cfg,
		Revision:       revision,
		UpdatedAt:      updatedAt,
		TrackerRunning: s.events.Running(),
		PollInterval:   units.HumanDuration(time.Duration(cfg.PollIdeStateMs) * time.Millisecond),
		LogFile:        s.log.CurrentLogFile(),
	}

	size, err := s.log.Size()
	if err != nil {
		slog.Warn("failed to stat tracking log", "error", err)
	}
	resp.LogSizeBytes = size
	resp.LogSize = units.HumanSize(float64(size))
	return resp
}

func (s *Server) mutationError(w http.ResponseWriter, op string, err error) {
	slog.Error("settings mutation failed", "op", op, "error", err)

	var workerErr *plugin.WorkerError
	if errors.As(err, &workerErr) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
