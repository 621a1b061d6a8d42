// Fotad is a firmware-over-the-air distribution server for embedded
// field devices.
//
// Devices poll GET /version to learn the digest of the staged firmware
// image, download it from GET /update (resuming interrupted transfers
// with Range requests), and operators watch GET /status. Concurrency is
// bounded: connections beyond the configured maximum are closed without
// a response so the fleet fails fast instead of timing out slowly.
//
// Usage:
//
//	fotad serve [flags]
//
// See 'fotad serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ottera/fotad/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fotad",
	Short: "Firmware OTA distribution server",
	Long: `A firmware-over-the-air distribution server for embedded field devices.

The server answers device version polls, streams firmware binaries with
resumable Range support, and reports live health. Drop a new firmware
image at the configured path and the fleet picks it up on its next poll;
no restart is required.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
