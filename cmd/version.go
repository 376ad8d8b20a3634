package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/update"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the client version",
	Long: `Print the running client version.

Unless --check is given, the releases feed is consulted at most once
every six hours; runs inside that window reuse the last result.`,
	Example: `  # Print the version
  webverse version

  # Force a fresh look at the releases feed
  webverse version --check`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("webverse %s\n", api.Version)

		checker := update.New(dataDir(), api.Version)
		info, err := checker.Check(context.Background(), versionCheck)
		if err != nil {
			if versionCheck {
				log.Error("Update check failed: %v", err)
				os.Exit(1)
			}
			log.Debug("Update check failed: %v", err)
			return
		}
		if info == nil {
			if versionCheck {
				log.Info("You are on the latest version")
			}
			return
		}
		log.Info("A newer version is available: %s", info.LatestVersion)
		if info.URL != "" {
			log.InfoH2("Download: %s", info.URL)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Poll the releases feed even inside the check interval")
}
