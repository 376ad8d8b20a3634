package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
)

var notesSet string

var notesCmd = &cobra.Command{
	Use:   "notes <lab-id>",
	Short: "Show or set your notes for a lab",
	Long: `Read or replace the free-text notes kept per lab.

Notes live with the progress record: on-device in local mode, at the
authority in remote mode.`,
	Example: `  # Show notes
  webverse notes sql-injection-101

  # Replace notes
  webverse notes sql-injection-101 --set "union-based, 3 columns"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.resolveLab(args[0])

		if cmd.Flags().Changed("set") {
			if err := a.progress.SetNotes(ctx, l.ID, notesSet); err != nil {
				log.Error("Failed to save notes: %v", err)
				os.Exit(1)
			}
			log.Info("Notes saved")
			return
		}

		notes, err := a.progress.Notes(ctx, l.ID)
		if err != nil {
			log.Error("Failed to read notes: %v", err)
			os.Exit(1)
		}
		if notes == "" {
			log.Info("No notes for %s yet", l.ID)
			return
		}
		fmt.Println(notes)
	},
}

func init() {
	rootCmd.AddCommand(notesCmd)

	notesCmd.Flags().StringVar(&notesSet, "set", "", "Replace the notes with this text")
}
