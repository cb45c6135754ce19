package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/spf13/cobra"
)

const launchAgentLabel = "io.github.jandubois.activity-tracker"

var launchAgentPlist = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
        <string>run</string>
        <string>--port</string>
        <string>{{.Port}}</string>
        <string>--database</string>
        <string>{{.DatabasePath}}</string>
        <string>--log-dir</string>
        <string>{{.TrackingLogDir}}</string>
        <string>--plugin-id</string>
        <string>{{.PluginID}}</string>
    </array>
    <key>EnvironmentVariables</key>
    <dict>
        <key>AUTH_TOKEN</key>
        <string>{{.AuthToken}}</string>
    </dict>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogDir}}/activity-tracker.log</string>
    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/activity-tracker.log</string>
</dict>
</plist>
`))

type plistData struct {
	Label          string
	Executable     string
	Port           int
	DatabasePath   string
	TrackingLogDir string
	PluginID       string
	AuthToken      string
	LogDir         string
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the tracker daemon as a launchd service (macOS)",
	Long: `Install the tracker daemon as a macOS LaunchAgent that starts on login
and runs continuously in the background.

The service will be installed to ~/Library/LaunchAgents and will restart
automatically if it crashes.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the tracker daemon service (macOS)",
	Long:  `Stop and remove the tracker daemon LaunchAgent.`,
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)

	installCmd.Flags().Int("port", 8787, "Port for the settings UI and API")
	installCmd.Flags().String("log-dir", "", "Directory for the tracking log (default: <data dir>/logs)")
	installCmd.Flags().String("auth-token", "", "Authentication token (or AUTH_TOKEN env var)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("install command is only supported on macOS")
	}

	port, _ := cmd.Flags().GetInt("port")
	pluginID, _ := cmd.Flags().GetString("plugin-id")
	authToken, err := getAuthToken(cmd, true)
	if err != nil {
		return err
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	launchAgentsDir := filepath.Join(homeDir, "Library", "LaunchAgents")
	logDir := filepath.Join(homeDir, "Library", "Logs", "activity-tracker")
	plistPath := filepath.Join(launchAgentsDir, launchAgentLabel+".plist")

	if err := os.MkdirAll(launchAgentsDir, 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Unload an existing service first
	if _, err := os.Stat(plistPath); err == nil {
		exec.Command("launchctl", "unload", plistPath).Run()
	}

	data := plistData{
		Label:          launchAgentLabel,
		Executable:     executable,
		Port:           port,
		DatabasePath:   absPath(getDatabasePath(cmd)),
		TrackingLogDir: absPath(getLogDir(cmd)),
		PluginID:       pluginID,
		AuthToken:      authToken,
		LogDir:         logDir,
	}

	f, err := os.Create(plistPath)
	if err != nil {
		return fmt.Errorf("failed to create plist file: %w", err)
	}
	defer f.Close()

	if err := writePlist(f, data); err != nil {
		return err
	}

	if err := exec.Command("launchctl", "load", plistPath).Run(); err != nil {
		return fmt.Errorf("failed to load service: %w", err)
	}

	fmt.Printf("Installed and started %s\n", launchAgentLabel)
	fmt.Printf("Settings UI: http://localhost:%d\n", port)
	fmt.Printf("Logs: %s/activity-tracker.log\n", logDir)
	fmt.Printf("Plist: %s\n", plistPath)
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("uninstall command is only supported on macOS")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	plistPath := filepath.Join(homeDir, "Library", "LaunchAgents", launchAgentLabel+".plist")

	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		return fmt.Errorf("service is not installed")
	}

	if err := exec.Command("launchctl", "unload", plistPath).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to unload service: %v\n", err)
	}

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("failed to remove plist: %w", err)
	}

	fmt.Printf("Uninstalled %s\n", launchAgentLabel)
	return nil
}

func writePlist(w io.Writer, data plistData) error {
	if err := launchAgentPlist.Execute(w, data); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	return nil
}

// absPath resolves path against the working directory; launchd starts
// agents in /.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
