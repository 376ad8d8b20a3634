package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active lab and progress summary",
	Long: `Show the current lifecycle state, the lab owning the active slot,
and the per-device progress summary.

The persisted lock is reconciled against docker on startup, so a lab
killed outside webverse (crash, manual docker compose down) shows up
as stopped here.`,
	Example: `  # Show current state
  webverse status`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		op, opLab := a.session.Current()
		switch op {
		case session.OpStopped:
			log.Info("No lab is active")
		case session.OpRunning:
			l := a.resolveLab(opLab)
			log.Info("%s is running", l.Name)
			printEntry(l)
		default:
			log.Info("%s is %s", opLab, op)
		}

		summary, err := a.progress.Summary(ctx)
		if err != nil {
			log.Debug("Progress summary unavailable: %v", err)
			return
		}
		log.InfoH2("Progress: %d started, %d solved, %d attempts",
			summary.Started, summary.Solved, summary.Attempts)

		if a.remote && a.gate.Locked(ctx) {
			log.InfoH2("This device is linked to an account; run 'webverse login' to see personal progress")
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
