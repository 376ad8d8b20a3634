package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/lab"
)

var (
	listEasy   bool
	listMedium bool
	listHard   bool
	listMaster bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed labs",
	Long: `List every lab discovered from the labs directories.

The active lab is marked with ▶ and solved labs with ✓. Progress
markers come from the per-device progress store. Difficulty flags
narrow the listing; combining them shows the union.`,
	Example: `  # List installed labs
  webverse list

  # Only the easy and medium ones
  webverse list --easy --medium`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		labs := a.registry.List()
		if len(labs) == 0 {
			log.Info("No labs installed. Run 'webverse labs check' to see what is available.")
			return
		}

		active, err := a.session.ActiveLab()
		if err != nil {
			log.Error("Failed to read runtime lock: %v", err)
		}
		prog, err := a.progress.Map(ctx)
		if err != nil {
			log.Debug("Progress unavailable: %v", err)
		}

		filter := difficultyFilter()
		shown := 0
		for _, l := range labs {
			if filter != nil && !filter[l.Difficulty] {
				continue
			}
			shown++
			marker := " "
			if l.ID == active {
				marker = "▶"
			}
			solved := " "
			if rec, ok := prog[l.ID]; ok && rec.Solved() {
				solved = "✓"
			}
			fmt.Printf("%s %s  %-28s  [%s]  %s\n", marker, solved, l.ID, l.Difficulty, l.Name)
		}
		if shown == 0 {
			log.Info("No labs match the difficulty filter")
		}
	},
}

// difficultyFilter returns the selected tiers, or nil for no filter
func difficultyFilter() map[string]bool {
	filter := map[string]bool{}
	if listEasy {
		filter[lab.DifficultyEasy] = true
	}
	if listMedium {
		filter[lab.DifficultyMedium] = true
	}
	if listHard {
		filter[lab.DifficultyHard] = true
	}
	if listMaster {
		filter[lab.DifficultyMaster] = true
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listEasy, "easy", false, "Show easy labs")
	listCmd.Flags().BoolVar(&listMedium, "medium", false, "Show medium labs")
	listCmd.Flags().BoolVar(&listHard, "hard", false, "Show hard labs")
	listCmd.Flags().BoolVar(&listMaster, "master", false, "Show master labs")
}
