package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/labwatch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the labs directories for manifest changes",
	Long: `Keep running and rescan the labs directories whenever a manifest
appears, changes or disappears.

Useful while authoring a lab: edits to lab.yml show up in
'webverse list' without restarting anything.`,
	Example: `  # Watch until interrupted
  webverse watch`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := mustApp(ctx)
		defer a.close()

		w, err := labwatch.New(labDirs(a.dataDir), func() {
			if err := a.registry.Refresh(); err != nil {
				log.Error("Registry refresh failed: %v", err)
				return
			}
			log.Info("Labs reloaded: %d installed", len(a.registry.List()))
		})
		if err != nil {
			log.Error("Failed to start watcher: %v", err)
			os.Exit(1)
		}

		log.Info("Watching for lab changes (Ctrl+C to stop)...")
		w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
