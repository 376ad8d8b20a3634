package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
)

var resetCmd = &cobra.Command{
	Use:   "reset [lab-id]",
	Short: "Reset a lab to a clean state",
	Long: `Tear the lab down (including volumes) and bring it straight back
up as one operation.

The lab stays locked for the whole cycle, so no other lab can grab
the active slot mid-reset. Progress is untouched; only the
environment state is discarded.`,
	Example: `  # Reset the active lab
  webverse reset`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.activeLabArg(args)

		log.Info("Resetting %s...", l.Name)
		output, err := a.session.Reset(ctx, l)
		if err != nil {
			if wverrors.Is(err, wverrors.ErrAnotherLabBusy) {
				log.Error("Another lab is active: %v", err)
			} else {
				log.Error("Reset failed: %v", err)
				if output != "" {
					log.ErrorH2("%s", output)
				}
			}
			os.Exit(1)
		}
		log.Info("%s is running from a clean state", l.Name)
		printEntry(l)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
