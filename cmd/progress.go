package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show per-lab progress",
	Long: `Show the per-device progress record for every known lab: when it
was last started, whether and when it was solved, and the attempt
count.

In remote mode the data comes from the authority through the
synchronization cache; on a linked device that is logged out the
personal view is withheld until 'webverse login'.`,
	Example: `  # Show progress for all labs
  webverse progress`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		if a.remote && a.gate.Locked(ctx) {
			log.Error("This device is linked to an account. Run 'webverse login' to see your progress.")
			os.Exit(1)
		}

		m, err := a.progress.Map(ctx)
		if err != nil {
			log.Error("Failed to read progress: %v", err)
			os.Exit(1)
		}

		labs := a.registry.List()
		if len(labs) == 0 && len(m) == 0 {
			log.Info("Nothing to show yet")
			return
		}

		for _, l := range labs {
			printProgressRow(l.ID, m[l.ID])
			delete(m, l.ID)
		}
		// Progress for labs that were since uninstalled is still shown
		for id, rec := range m {
			printProgressRow(id, rec)
		}

		summary, err := a.progress.Summary(ctx)
		if err == nil {
			log.InfoH2("Total: %d started, %d solved, %d attempts",
				summary.Started, summary.Solved, summary.Attempts)
		}
	},
}

func printProgressRow(id string, rec progress.Record) {
	state := "not started"
	switch {
	case rec.Solved():
		state = "solved " + rec.SolvedAt
	case rec.StartedAt != "":
		state = "started " + rec.StartedAt
	}
	fmt.Printf("%-28s  %-38s  attempts: %d\n", id, state, rec.Attempts)
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
