package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
)

var downCmd = &cobra.Command{
	Use:     "down [lab-id]",
	Aliases: []string{"stop"},
	Short:   "Stop the active lab environment",
	Long: `Tear the lab's docker compose environment down, removing its
containers and volumes.

Without an argument the active lab is stopped. The runtime lock is
released even when tear-down reports a failure, so a broken
environment never blocks starting the next lab.`,
	Example: `  # Stop the active lab
  webverse down

  # Stop a specific lab (recovers a stuck state)
  webverse down sql-injection-101`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.activeLabArg(args)

		log.Info("Stopping %s...", l.Name)
		output, err := a.session.Stop(ctx, l)
		if err != nil {
			log.Error("Tear-down reported a failure: %v", err)
			if output != "" {
				log.ErrorH2("%s", output)
			}
			log.Info("The active slot was released anyway")
			os.Exit(1)
		}
		log.Info("%s stopped", l.Name)
	},
}

func init() {
	rootCmd.AddCommand(downCmd)
}
