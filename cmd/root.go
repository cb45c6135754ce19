package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/settings"
)

// Version is set at build time via -ldflags "-X github.com/jandubois/activity-tracker/cmd.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "activity-tracker",
	Short: "Record IDE activity to a local log",
	Long: `activity-tracker keeps the tracking settings in a local SQLite store,
runs the tracker while tracking is on, and serves a small settings UI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("activity-tracker version %s\n", Version)
			return
		}
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version and exit")
	rootCmd.PersistentFlags().StringP("database", "d", "", "SQLite settings database path (or DATABASE_PATH env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("plugin-id", settings.DefaultPluginID, "Settings key namespace")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	levelName, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelName))); err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func getDatabasePath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("database")
	if path == "" {
		path = os.Getenv("DATABASE_PATH")
	}
	if path == "" {
		path = filepath.Join(config.DataDir(), "settings.db")
	}
	return path
}

// getAuthToken resolves the auth token from --auth-token, AUTH_TOKEN or the
// token file. Daemon commands pass create to generate the file on first use.
func getAuthToken(cmd *cobra.Command, create bool) (string, error) {
	token, _ := cmd.Flags().GetString("auth-token")
	if token == "" {
		token = os.Getenv("AUTH_TOKEN")
	}
	if token != "" {
		return token, nil
	}

	path := config.TokenPath()
	if create {
		return config.LoadOrCreateToken(path)
	}
	token, err := config.LoadToken(path)
	if errors.Is(err, config.ErrNoToken) {
		return "", fmt.Errorf("auth token required (use --auth-token, AUTH_TOKEN env var, or start the daemon once to create %s)", path)
	}
	return token, err
}
