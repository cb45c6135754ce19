package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jandubois/activity-tracker/internal/desktop"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Locate or open the tracking log",
	Long: `The log commands work on the local log directory. With --url the
daemon at that address opens the log instead.`,
}

var logPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the tracking log path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), trackerlog.New(getLogDir(cmd)).CurrentLogFile())
		return nil
	},
}

var logOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the tracking log in an editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openLog(cmd, false)
	},
}

var logFolderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Open the folder containing the tracking log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openLog(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logPathCmd, logOpenCmd, logFolderCmd)

	logCmd.PersistentFlags().String("log-dir", "", "Directory for the tracking log (default: <data dir>/logs)")
	for _, c := range []*cobra.Command{logOpenCmd, logFolderCmd} {
		addClientFlags(c)
	}
}

func openLog(cmd *cobra.Command, folder bool) error {
	if cmd.Flags().Changed("url") {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if folder {
			return c.OpenLogFolder(cmd.Context())
		}
		return c.OpenLog(cmd.Context())
	}

	path := trackerlog.New(getLogDir(cmd)).CurrentLogFile()
	host := desktop.New()
	if folder {
		if err := host.OpenFolder(filepath.Dir(path)); err != nil {
			return fmt.Errorf("open log folder: %w", err)
		}
		return nil
	}
	if err := host.OpenInEditor(path); err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	return nil
}
