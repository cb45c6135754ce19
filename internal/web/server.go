package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/plugin"
	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
)

// Controller is the part of plugin.Controller the UI drives.
type Controller interface {
	State() settings.Config
	Update(ctx context.Context, fn func(settings.Config) settings.Config) error
	ToggleTracking(ctx context.Context) error
	AttachObserver(o plugin.Observer) (detach func())
	OpenTrackingLogFile() error
	OpenTrackingLogFolder() error
}

// EventSink accepts activity events from the host integration.
type EventSink interface {
	Record(ev trackerlog.Event) bool
	Running() bool
}

// LogFile is the tracking log served by the UI.
type LogFile interface {
	CurrentLogFile() string
	Size() (int64, error)
}

// Notifier is told about every Config the UI receives.
type Notifier interface {
	Observe(cfg settings.Config)
}

// Option configures a Server.
type Option func(*Server)

// WithNotifier forwards observed Configs to n.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// Server is the HTTP UI. It observes the controller and shows the last
// Config pushed to it.
type Server struct {
	ctrl     Controller
	events   EventSink
	log      LogFile
	config   *config.WebConfig
	server   *http.Server
	notifier Notifier

	mu        sync.RWMutex
	observed  settings.Config
	revision  int64
	updatedAt time.Time
	closed    bool
}

// NewServer creates a new web server.
func NewServer(ctrl Controller, events EventSink, log LogFile, cfg *config.WebConfig, opts ...Option) (*Server, error) {
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("auth token required")
	}
	s := &Server{
		ctrl:   ctrl,
		events: events,
		log:    log,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Update records cfg as the Config shown by the UI.
func (s *Server) Update(cfg settings.Config) {
	s.mu.Lock()
	s.observed = cfg
	s.revision++
	s.updatedAt = time.Now()
	revision := s.revision
	s.mu.Unlock()

	slog.Debug("ui updated", "revision", revision, "tracking", cfg.Tracking)
	if s.notifier != nil {
		s.notifier.Observe(cfg)
	}
}

// Closed reports whether the server has shut down.
func (s *Server) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Observed returns the last Config pushed to the UI and its revision.
func (s *Server) Observed() (settings.Config, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observed, s.revision
}

// Run attaches the UI to the controller and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	detach := s.ctrl.AttachObserver(s)
	defer func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		detach()
	}()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web UI listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down web UI")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check (no auth)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.Handle("GET /api/state", s.requireAuth(http.HandlerFunc(s.handleState)))
	mux.Handle("POST /api/tracking/toggle", s.requireAuth(http.HandlerFunc(s.handleToggleTracking)))
	mux.Handle("PATCH /api/settings", s.requireAuth(http.HandlerFunc(s.handleUpdateSettings)))
	mux.Handle("POST /api/events", s.requireAuth(http.HandlerFunc(s.handleRecordEvents)))
	mux.Handle("GET /api/log", s.requireAuth(http.HandlerFunc(s.handleDownloadLog)))
	mux.Handle("POST /api/log/open", s.requireAuth(http.HandlerFunc(s.handleOpenLog)))
	mux.Handle("POST /api/log/open-folder", s.requireAuth(http.HandlerFunc(s.handleOpenLogFolder)))

	// Settings page
	mux.Handle("GET /", staticHandler())

	return mux
}
