package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
)

var logsTail int

var logsCmd = &cobra.Command{
	Use:   "logs [lab-id]",
	Short: "Show recent service logs for a lab",
	Long: `Fetch the combined docker compose service logs for a lab.

Without an argument the active lab is used.`,
	Example: `  # Last 100 lines of the active lab
  webverse logs

  # More context for a specific lab
  webverse logs sql-injection-101 --tail 500`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.activeLabArg(args)

		output, err := a.runner.Logs(ctx, l, logsTail)
		if err != nil {
			log.Error("Failed to fetch logs: %v", err)
			os.Exit(1)
		}
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 100, "Number of log lines per service")
}
