package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/webverse/session"
)

var playCmd = &cobra.Command{
	Use:     "play <lab-id>",
	Aliases: []string{"start", "up"},
	Short:   "Start a lab environment",
	Long: `Bring a lab's docker compose environment up and mark it active.

Only one lab can be active at a time. Starting a second lab while one
is running is rejected; stop the active lab first with 'webverse down'.
Before bring-up the lab's published host ports are checked against
ports already bound by docker, so an unwinnable start fails fast.`,
	Example: `  # Start a lab
  webverse play sql-injection-101`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.resolveLab(args[0])

		log.Info("Starting %s...", l.Name)
		output, err := a.session.Start(ctx, l)
		if err != nil {
			switch {
			case wverrors.Is(err, session.ErrAlreadyRunning):
				log.Info("%s is already running", l.ID)
				printEntry(l)
				return
			case wverrors.Is(err, wverrors.ErrAnotherLabBusy):
				log.Error("Another lab is active: %v", err)
				log.Error("Stop it first with 'webverse down'")
			case wverrors.Is(err, wverrors.ErrPrecondition):
				log.Error("Cannot start: %v", err)
			default:
				log.Error("Start failed: %v", err)
				if output != "" {
					log.ErrorH2("%s", output)
				}
			}
			os.Exit(1)
		}

		log.Info("%s is running", l.Name)
		printEntry(l)
	},
}

func printEntry(l *lab.Lab) {
	if l.EntryURL != "" {
		log.InfoH2("Open %s to begin", l.EntryURL)
	}
	if l.Story != "" {
		log.InfoH3("%s", l.Story)
	}
}

func init() {
	rootCmd.AddCommand(playCmd)
}
