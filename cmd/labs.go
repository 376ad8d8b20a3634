package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/remote"
)

var labsInstallAll bool

var labsCmd = &cobra.Command{
	Use:   "labs",
	Short: "Manage downloadable lab bundles",
	Long: `Check for and install lab bundles published by the authority.

Bundles are zip archives verified against a pinned sha256 before
extraction into the user labs directory.`,
}

var labsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "List labs available for install",
	Example: `  # See what is missing locally
  webverse labs check`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		missing, err := a.api.CheckLabs(ctx, a.registry.IDs())
		if err != nil {
			log.Error("Check failed: %v", err)
			os.Exit(1)
		}
		if len(missing) == 0 {
			log.Info("All published labs are installed")
			return
		}
		log.Info("%d lab(s) available:", len(missing))
		for _, rl := range missing {
			log.InfoH2("%-28s  [%s]  %s (%s)", rl.ID, rl.Difficulty, rl.Name, rl.Version)
		}
	},
}

var labsInstallCmd = &cobra.Command{
	Use:   "install [lab-id...]",
	Short: "Download and install lab bundles",
	Long: `Download the named bundles (or everything missing with --all),
verify their checksums and unpack them into the user labs directory.`,
	Example: `  # Install one lab
  webverse labs install sql-injection-101

  # Install everything missing
  webverse labs install --all`,
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		if !labsInstallAll && len(args) == 0 {
			log.Error("Name at least one lab or pass --all")
			os.Exit(1)
		}

		missing, err := a.api.CheckLabs(ctx, a.registry.IDs())
		if err != nil {
			log.Error("Check failed: %v", err)
			os.Exit(1)
		}

		wanted := missing
		if !labsInstallAll {
			byID := map[string]bool{}
			for _, id := range args {
				byID[id] = true
			}
			wanted = wanted[:0]
			for _, rl := range missing {
				if byID[rl.ID] {
					wanted = append(wanted, rl)
					delete(byID, rl.ID)
				}
			}
			for id := range byID {
				log.Error("Lab %q is not available (already installed or unknown)", id)
			}
		}
		if len(wanted) == 0 {
			log.Info("Nothing to install")
			return
		}

		installer := remote.NewInstaller(a.api, userLabsDir(a.dataDir))
		failed := 0
		for _, rl := range wanted {
			if err := installer.Install(ctx, rl); err != nil {
				log.Error("Failed to install %s: %v", rl.ID, err)
				failed++
			}
		}
		if err := a.registry.Refresh(); err != nil {
			log.Error("Registry refresh failed: %v", err)
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

// userLabsDir is where installed bundles land; local checkouts in
// ./labs still shadow them during discovery.
func userLabsDir(dataDir string) string {
	if v := os.Getenv("WEBVERSE_LABS_DIR"); v != "" {
		return v
	}
	return filepath.Join(dataDir, "labs")
}

func init() {
	rootCmd.AddCommand(labsCmd)
	labsCmd.AddCommand(labsCheckCmd)
	labsCmd.AddCommand(labsInstallCmd)

	labsInstallCmd.Flags().BoolVar(&labsInstallAll, "all", false, "Install every missing lab")
}
