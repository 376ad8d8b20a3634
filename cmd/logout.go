package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/notify"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored credential",
	Long: `Remove the locally stored token and ask the authority to
invalidate the session.

The server-side invalidation is best effort: the local credential is
cleared even when the authority is unreachable.`,
	Example: `  # Log out
  webverse logout`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		if !a.creds.Authenticated() {
			log.Info("Not logged in")
			return
		}

		if err := a.api.Logout(ctx); err != nil {
			log.Debug("Server-side logout failed: %v", err)
		}
		if err := a.creds.Clear(); err != nil {
			log.Error("Failed to clear credential: %v", err)
			os.Exit(1)
		}

		a.cache.InvalidateAll()
		a.notifier.Emit(notify.Event{Kind: notify.KindAuth})

		log.Info("Logged out")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
