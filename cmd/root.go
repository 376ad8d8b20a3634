/*
Copyright © 2026 WebVerse Labs opensource@webverselabs.com
*/

// Package cmd provides command-line interface commands for webverse
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "webverse",
	Short: "Self-hosted runner for WebVerse training labs",
	Long: `webverse - Run container-based security training labs locally

Each lab is a docker compose project discovered from a lab.yml
manifest. One lab is active at a time; progress, attempts and notes
are tracked per device.

Features:
  • Start, stop and reset lab environments
  • Flag submission with local or server-side verification
  • Per-lab progress tracking and notes
  • Optional account linking for cross-device progress
  • Lab bundle download and install`,
	Example: `  # List installed labs
  webverse list

  # Start a lab
  webverse play sql-injection-101

  # Submit a flag
  webverse submit sql-injection-101 'WV{...}'

  # Stop the active lab
  webverse down`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// Enable debug mode if flag is set
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			log.SetDebugMode(true)
			log.Debug("Debug mode enabled")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add debug flag to root command
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
}
