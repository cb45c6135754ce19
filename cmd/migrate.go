package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jandubois/activity-tracker/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run settings database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("down", false, "Roll back all migrations")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dbPath := getDatabasePath(cmd)
	down, _ := cmd.Flags().GetBool("down")

	if down {
		slog.Info("rolling back all migrations", "database", dbPath)
		if err := db.RollbackMigrations(cmd.Context(), dbPath); err != nil {
			return err
		}
		slog.Info("migrations rolled back")
		return nil
	}

	slog.Info("running migrations", "database", dbPath)
	if err := db.RunMigrations(cmd.Context(), dbPath); err != nil {
		return err
	}
	slog.Info("migrations complete")
	return nil
}
