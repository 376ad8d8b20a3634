package cmd

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
)

var submitCmd = &cobra.Command{
	Use:   "submit <lab-id> [flag]",
	Short: "Submit a flag for a lab",
	Long: `Verify a flag and record the result.

In local mode the flag is checked against the hash pinned in the lab
manifest. In remote mode the flag goes to the authority and the local
view re-reads until the solve is visible. A rejected flag counts as
one attempt; solving a lab twice keeps the first solve time.`,
	Example: `  # Submit directly
  webverse submit sql-injection-101 'WV{...}'

  # Prompt for the flag without shell history
  webverse submit sql-injection-101`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		l := a.resolveLab(args[0])

		var flag string
		if len(args) > 1 {
			flag = args[1]
		} else {
			prompt := &survey.Password{Message: "Flag:"}
			if err := survey.AskOne(prompt, &flag, survey.WithValidator(survey.Required)); err != nil {
				log.Error("Aborted: %v", err)
				os.Exit(1)
			}
		}

		ok, reason, err := a.progress.SubmitFlag(ctx, l, flag)
		if err != nil {
			log.Error("Submission failed: %v", err)
			os.Exit(1)
		}
		if !ok {
			log.Error("%s", reason)
			os.Exit(1)
		}

		log.Info("Correct! %s solved.", l.Name)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
