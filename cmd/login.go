package cmd

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/notify"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your WebVerse account",
	Long: `Exchange account credentials for a token stored locally.

Logging in links this device's progress to the account. On a linked
device the personal progress views stay locked until a login.`,
	Example: `  # Interactive login
  webverse login

  # Pre-fill the username
  webverse login --username alex`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		username := loginUsername
		if username == "" {
			if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username,
				survey.WithValidator(survey.Required)); err != nil {
				log.Error("Aborted: %v", err)
				os.Exit(1)
			}
		}
		var password string
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password,
			survey.WithValidator(survey.Required)); err != nil {
			log.Error("Aborted: %v", err)
			os.Exit(1)
		}

		resp, err := a.api.Login(ctx, api.LoginForm{Username: username, Password: password})
		if err != nil {
			log.Error("Login failed: %v", err)
			os.Exit(1)
		}

		name := resp.Username
		if name == "" {
			name = username
		}
		if err := a.creds.Save(name, resp.AccessToken); err != nil {
			log.Error("Failed to store credential: %v", err)
			os.Exit(1)
		}

		// A new identity invalidates every cached view of the old one
		a.cache.InvalidateAll()
		a.notifier.Emit(notify.Event{Kind: notify.KindAuth})

		log.Info("Logged in as %s", name)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account username")
}
