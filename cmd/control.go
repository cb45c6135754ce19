package cmd

import (
	"fmt"
	"io"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"github.com/jandubois/activity-tracker/internal/client"
	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
	"github.com/jandubois/activity-tracker/internal/web"
)

const defaultURL = "http://localhost:8787"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's tracking state",
	RunE:  runStatus,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Turn tracking on or off",
	RunE:  runToggle,
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change tracking settings",
	Example: `  activity-tracker set --track-keyboard --track-mouse
  activity-tracker set --poll-ide-state-ms 500 --mouse-move-threshold-ms 0`,
	RunE: runSet,
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Send an activity event to the daemon",
	RunE:  runEvent,
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, toggleCmd, setCmd, eventCmd} {
		addClientFlags(c)
		rootCmd.AddCommand(c)
	}

	addSettingsFlags(setCmd)

	eventCmd.Flags().String("type", trackerlog.TypeAction, "Event type (ide_state, action, keyboard, mouse, mouse_move)")
	eventCmd.Flags().String("data", "", "Event payload")
	eventCmd.Flags().String("project", "", "Project the event belongs to")
	eventCmd.Flags().String("file", "", "File the event belongs to")
}

func addClientFlags(c *cobra.Command) {
	c.Flags().String("url", defaultURL, "Daemon URL")
	c.Flags().String("auth-token", "", "Authentication token (or AUTH_TOKEN env var)")
}

func addSettingsFlags(c *cobra.Command) {
	c.Flags().Bool("tracking", false, "Record activity")
	c.Flags().Bool("poll-ide-state", false, "Poll the IDE for project and file focus")
	c.Flags().Int("poll-ide-state-ms", 0, "IDE state polling interval in milliseconds")
	c.Flags().Bool("track-ide-actions", false, "Record IDE actions")
	c.Flags().Bool("track-keyboard", false, "Record keyboard events")
	c.Flags().Bool("track-mouse", false, "Record mouse events")
	c.Flags().Int("mouse-move-threshold-ms", 0, "Minimum time between recorded mouse moves in milliseconds")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	url, _ := cmd.Flags().GetString("url")
	authToken, err := getAuthToken(cmd, false)
	if err != nil {
		return nil, err
	}
	cfg := &config.ClientConfig{URL: url, AuthToken: authToken}
	return client.New(cfg.URL, cfg.AuthToken), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	state, err := c.State(cmd.Context())
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	state, err := c.ToggleTracking(cmd.Context())
	if err != nil {
		return fmt.Errorf("toggle tracking: %w", err)
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	patch := patchFromFlags(cmd)
	if patch.Empty() {
		return fmt.Errorf("no settings given")
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	state, err := c.UpdateSettings(cmd.Context(), patch)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runEvent(cmd *cobra.Command, args []string) error {
	var ev trackerlog.Event
	ev.Type, _ = cmd.Flags().GetString("type")
	ev.Data, _ = cmd.Flags().GetString("data")
	ev.Project, _ = cmd.Flags().GetString("project")
	ev.File, _ = cmd.Flags().GetString("file")
	ev.Time = time.Now()

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	resp, err := c.SendEvents(cmd.Context(), []trackerlog.Event{ev})
	if err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	if resp.Accepted == 0 {
		reason := "filtered by current settings"
		if !resp.TrackerRunning {
			reason = "tracker not running"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Event dropped (%s)\n", reason)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Event recorded")
	return nil
}

// patchFromFlags sets only the fields whose flags were given.
func patchFromFlags(cmd *cobra.Command) settings.Patch {
	flags := cmd.Flags()
	boolFlag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return ptr.To(v)
	}
	intFlag := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return ptr.To(v)
	}

	return settings.Patch{
		Tracking:                   boolFlag("tracking"),
		PollIdeState:               boolFlag("poll-ide-state"),
		PollIdeStateMs:             intFlag("poll-ide-state-ms"),
		TrackIdeActions:            boolFlag("track-ide-actions"),
		TrackKeyboard:              boolFlag("track-keyboard"),
		TrackMouse:                 boolFlag("track-mouse"),
		MouseMoveEventsThresholdMs: intFlag("mouse-move-threshold-ms"),
	}
}

func printState(w io.Writer, state *web.StateResponse) {
	cfg := state.Config
	spec := cfg.WorkerSpec()

	tracker := "stopped"
	if state.TrackerRunning {
		tracker = "running"
	}
	poll := onOff(cfg.PollIdeState)
	if cfg.PollIdeState {
		poll += " (every " + units.HumanDuration(spec.PollIdeStateInterval) + ")"
	}
	mouse := onOff(cfg.TrackMouse)
	if cfg.TrackMouse {
		mouse += fmt.Sprintf(" (move threshold %s)", spec.MouseMoveEventsThreshold)
	}

	fmt.Fprintf(w, "Tracking:        %s\n", onOff(cfg.Tracking))
	fmt.Fprintf(w, "Tracker:         %s\n", tracker)
	fmt.Fprintf(w, "Poll IDE state:  %s\n", poll)
	fmt.Fprintf(w, "IDE actions:     %s\n", onOff(cfg.TrackIdeActions))
	fmt.Fprintf(w, "Keyboard:        %s\n", onOff(cfg.TrackKeyboard))
	fmt.Fprintf(w, "Mouse:           %s\n", mouse)
	fmt.Fprintf(w, "Log:             %s (%s)\n", state.LogFile, state.LogSize)
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:         %s ago\n", units.HumanDuration(time.Since(state.UpdatedAt)))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
