package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jandubois/activity-tracker/internal/db"
	"github.com/jandubois/activity-tracker/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect the stored tracking settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings the daemon will load",
	RunE:  runSettingsShow,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove stored settings so defaults apply on the next start",
	RunE:  runSettingsReset,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsResetCmd)

	settingsShowCmd.Flags().StringP("output", "o", "text", "Output format (text, json, yaml)")
	settingsShowCmd.Flags().Bool("raw", false, "List stored keys instead of the resolved settings")
}

func openStore(ctx context.Context, cmd *cobra.Command) (*db.DB, error) {
	dbPath := getDatabasePath(cmd)
	if err := db.RunMigrations(ctx, dbPath); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	database, err := db.Connect(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return database, nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	output, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")
	pluginID, _ := cmd.Flags().GetString("plugin-id")

	database, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer database.Close()
	props := db.NewProperties(database)

	if raw {
		list, err := props.List(ctx, settings.Key(pluginID, ""))
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", p.Key, p.Value)
		}
		return nil
	}

	return writeConfig(cmd.OutOrStdout(), settings.Load(ctx, props, pluginID), output)
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pluginID, _ := cmd.Flags().GetString("plugin-id")

	database, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	removed, err := resetSettings(ctx, db.NewProperties(database), pluginID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stored settings\n", removed)
	return nil
}

// resetSettings removes the Config keys of id and reports how many were
// stored. Other keys sharing the prefix are left alone.
func resetSettings(ctx context.Context, props *db.Properties, id string) (int, error) {
	list, err := props.List(ctx, settings.Key(id, ""))
	if err != nil {
		return 0, err
	}
	stored := make(map[string]bool, len(list))
	for _, p := range list {
		stored[p.Key] = true
	}

	removed := 0
	for _, key := range settings.Keys(id) {
		if !stored[key] {
			continue
		}
		if err := props.Unset(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func writeConfig(w io.Writer, cfg settings.Config, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "Tracking:                  %t\n", cfg.Tracking)
		fmt.Fprintf(w, "Poll IDE state:            %t\n", cfg.PollIdeState)
		fmt.Fprintf(w, "Poll IDE state (ms):       %d\n", cfg.PollIdeStateMs)
		fmt.Fprintf(w, "Track IDE actions:         %t\n", cfg.TrackIdeActions)
		fmt.Fprintf(w, "Track keyboard:            %t\n", cfg.TrackKeyboard)
		fmt.Fprintf(w, "Track mouse:               %t\n", cfg.TrackMouse)
		fmt.Fprintf(w, "Mouse move threshold (ms): %d\n", cfg.MouseMoveEventsThresholdMs)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
