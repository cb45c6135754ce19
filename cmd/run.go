package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/db"
	"github.com/jandubois/activity-tracker/internal/desktop"
	"github.com/jandubois/activity-tracker/internal/notify"
	"github.com/jandubois/activity-tracker/internal/plugin"
	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/tracker"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
	"github.com/jandubois/activity-tracker/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker daemon",
	Long: `Run loads the tracking settings, starts the tracker if tracking is on,
and serves the settings UI and event API until interrupted.

With --port 0 no UI is served and settings changes are only logged.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("port", 8787, "Port for the settings UI and API (0 disables it)")
	runCmd.Flags().String("auth-token", "", "Authentication token (or AUTH_TOKEN env var)")
	runCmd.Flags().String("log-dir", "", "Directory for the tracking log (default: <data dir>/logs)")
	runCmd.Flags().String("ntfy-server", "", "ntfy server for tracking notifications (default: https://ntfy.sh)")
	runCmd.Flags().String("ntfy-topic", "", "ntfy topic for tracking notifications")
	runCmd.Flags().String("pushover-user", "", "Pushover user key for tracking notifications (token from PUSHOVER_TOKEN)")
}

// logObserver reports settings changes when no UI is attached.
type logObserver struct {
	notifier *notify.Dispatcher
}

func (o logObserver) Update(cfg settings.Config) {
	o.notifier.Observe(cfg)
	slog.Info("settings changed",
		"tracking", cfg.Tracking,
		"poll_ide_state", cfg.PollIdeState,
		"poll_ide_state_ms", cfg.PollIdeStateMs,
		"track_ide_actions", cfg.TrackIdeActions,
		"track_keyboard", cfg.TrackKeyboard,
		"track_mouse", cfg.TrackMouse,
		"mouse_move_events_threshold_ms", cfg.MouseMoveEventsThresholdMs,
	)
}

func getNotifyConfig(cmd *cobra.Command) *config.NotifyConfig {
	server, _ := cmd.Flags().GetString("ntfy-server")
	topic, _ := cmd.Flags().GetString("ntfy-topic")
	user, _ := cmd.Flags().GetString("pushover-user")
	return &config.NotifyConfig{
		NtfyServer:    server,
		NtfyTopic:     topic,
		NtfyToken:     os.Getenv("NTFY_TOKEN"),
		PushoverToken: os.Getenv("PUSHOVER_TOKEN"),
		PushoverUser:  user,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	port, _ := cmd.Flags().GetInt("port")
	pluginID, _ := cmd.Flags().GetString("plugin-id")
	runCfg := &config.RunConfig{
		DatabasePath: getDatabasePath(cmd),
		LogDir:       getLogDir(cmd),
		PluginID:     pluginID,
	}

	var webCfg *config.WebConfig
	if port != 0 {
		authToken, err := getAuthToken(cmd, true)
		if err != nil {
			return err
		}
		webCfg = &config.WebConfig{Port: port, AuthToken: authToken}
	}

	if err := db.RunMigrations(ctx, runCfg.DatabasePath); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	database, err := db.Connect(ctx, runCfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close()

	trackerLog := trackerlog.New(runCfg.LogDir)
	tr := tracker.New(trackerLog)
	ctrl := plugin.New(tr, db.NewProperties(database),
		plugin.WithPluginID(runCfg.PluginID),
		plugin.WithTrackerLog(trackerLog),
		plugin.WithHost(desktop.New()),
	)
	defer func() {
		if err := tr.Stop(); err != nil {
			slog.Error("failed to stop tracker", "error", err)
		}
	}()

	hostname, _ := os.Hostname()
	notifier := notify.NewDispatcher(hostname, notify.Channels(getNotifyConfig(cmd))...)
	defer notifier.Wait()

	cfg, err := ctrl.Initialize(ctx)
	if err != nil {
		// Keep serving so tracking can be retried from the UI.
		slog.Error("tracker failed to start", "error", err)
	}

	slog.Info("starting activity tracker",
		"database", runCfg.DatabasePath,
		"log_file", trackerLog.CurrentLogFile(),
		"plugin_id", runCfg.PluginID,
		"tracking", cfg.Tracking,
		"port", port,
		"notification_channels", notifier.Len(),
	)

	if webCfg == nil {
		detach := ctrl.AttachObserver(logObserver{notifier: notifier})
		defer detach()
		<-ctx.Done()
		return nil
	}

	server, err := web.NewServer(ctrl, tr, trackerLog, webCfg, web.WithNotifier(notifier))
	if err != nil {
		return fmt.Errorf("web server initialization failed: %w", err)
	}
	return server.Run(ctx)
}

func getLogDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("log-dir")
	if dir == "" {
		dir = filepath.Join(config.DataDir(), "logs")
	}
	return dir
}
