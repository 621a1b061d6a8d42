package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ottera/fotad/internal/client"
	"github.com/ottera/fotad/internal/config"
	"github.com/ottera/fotad/internal/server"
	"github.com/ottera/fotad/internal/version"
)

// Serve command and flags
var (
	configPath     string
	host           string
	port           int
	firmwareDir    string
	firmwareFile   string
	maxConnections int
	ioTimeout      int
	logLevel       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OTA server",
	Long: `Start the OTA server and block until interrupted.

Configuration is read from the YAML file given by --config (missing file
means defaults). Any flag set explicitly on the command line overrides
the corresponding file value.`,
	Example: `  # Serve ./firmware.bin on the default port
  fotad serve

  # Serve a specific image directory on a custom port with logging
  fotad serve --firmware-dir /srv/ota --port 8070 --log-level info

  # Run from a config file
  fotad serve --config /etc/fotad/fotad.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "fotad.yaml", "Path to YAML config file (missing file = defaults)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&firmwareDir, "firmware-dir", ".", "Directory holding the firmware artifact")
	serveCmd.Flags().StringVar(&firmwareFile, "firmware-file", config.DefaultFirmwareFile, "Firmware artifact filename")
	serveCmd.Flags().IntVar(&maxConnections, "max-connections", config.DefaultMaxConnections, "Maximum concurrently served connections")
	serveCmd.Flags().IntVar(&ioTimeout, "io-timeout", 0, "Per-connection socket deadline in seconds (0 = default 60)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Explicit flags win over file values
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("firmware-dir") {
		cfg.FirmwareDir = firmwareDir
	}
	if cmd.Flags().Changed("firmware-file") {
		cfg.FirmwareFile = firmwareFile
	}
	if cmd.Flags().Changed("max-connections") {
		cfg.MaxConnections = maxConnections
	}
	if cmd.Flags().Changed("io-timeout") {
		cfg.IOTimeoutSeconds = ioTimeout
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// Check command and flags
var (
	checkHost string
	checkPort int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Query a running server's status and firmware version",
	Long: `Query a running OTA server and print a human-readable summary of its
health and the firmware build it is currently distributing.`,
	Example: `  # Check a local server
  fotad check

  # Check a remote server
  fotad check --host 10.0.0.5 --port 8070`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkHost, "host", "127.0.0.1", "Server host")
	checkCmd.Flags().IntVar(&checkPort, "port", config.DefaultPort, "Server port")
}

func runCheck(cmd *cobra.Command, args []string) error {
	c := client.New(checkHost, checkPort)

	status, err := c.GetStatus()
	if err != nil {
		return fmt.Errorf("server check failed: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Printf("%s %s\n", bold("Server:"), green(status.Status))
	fmt.Printf("%s %d\n", bold("Active connections:"), status.ActiveThreads)
	fmt.Printf("%s %s\n", bold("Checked at:"), time.Unix(status.Timestamp, 0).Format(time.RFC3339))

	if !status.FirmwareAvailable {
		fmt.Printf("%s %s\n", bold("Firmware:"), yellow("not staged"))
		return nil
	}

	ver, err := c.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to fetch firmware version: %w", err)
	}

	fmt.Printf("%s %s\n", bold("Firmware:"), green(ver.Filename))
	fmt.Printf("%s %s\n", bold("Digest:"), ver.Version)
	fmt.Printf("%s %d bytes\n", bold("Size:"), ver.Size)

	return nil
}

// Config command
var configInitPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented example configuration file",
	Example: `  # Write ./fotad.yaml
  fotad config init

  # Write to a system location
  fotad config init --path /etc/fotad/fotad.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteExample(configInitPath); err != nil {
			return err
		}
		fmt.Printf("Wrote example configuration to %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "fotad.yaml", "Where to write the config file")
	configCmd.AddCommand(configInitCmd)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fotad %s (commit: %s)\n", version.Version, version.Commit)
	},
}
