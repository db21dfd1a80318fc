package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/postline/xpost/internal/api"
	"github.com/postline/xpost/internal/authflow"
	"github.com/postline/xpost/internal/config"
	"github.com/postline/xpost/internal/credentials"
)

func newSetupCmd() *cobra.Command {
	var manual bool
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authenticate to X and store credentials",
		Long: `Runs the OAuth 2.0 authorization-code flow with PKCE: opens the
authorization URL, captures the redirect on a local listener, exchanges the
code for tokens, and writes the credential record.

With --manual no listener is started; open the printed URL anywhere and
paste the full redirect URL back when prompted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(cfg *config.Config, flow *authflow.Flow, store *credentials.FileStore) {
				runErr = runSetup(cmd, cfg, flow, store, manual, noBrowser)
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of running the local listener")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not try to open the authorization URL in a browser")
	return cmd
}

func runSetup(cmd *cobra.Command, cfg *config.Config, flow *authflow.Flow, store *credentials.FileStore, manual, noBrowser bool) error {
	opts := authflow.Options{
		OnAuthURL: func(url string) {
			fmt.Printf("OAUTH_URL=%s\n", url)
			fmt.Printf("REDIRECT_URI=%s\n", cfg.OAuth.RedirectURI())
		},
		OnState: func(state authflow.State) {
			fmt.Printf("STATUS=%s\n", state)
		},
		SkipBrowser: noBrowser || manual,
	}
	if manual {
		opts.PromptRedirect = func() (string, error) {
			pterm.Info.Println("Open the URL above, approve access, then paste the full redirect URL here:")
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(line), nil
		}
	}

	record, err := flow.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("SUCCESS=Authenticated as %s (@%s)\n", record.DisplayName, record.Username)
	fmt.Printf("SETTINGS_PATH=%s\n", store.Path())
	pterm.Success.Printfln("Authenticated as %s (@%s)", record.DisplayName, record.Username)
	return nil
}

func newCheckAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-auth",
		Short: "Show authentication status without touching the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(client *api.Client) {
				runErr = runCheckAuth(client)
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}
}

func runCheckAuth(client *api.Client) error {
	status, err := client.CheckAuth()
	if err != nil {
		return err
	}

	fmt.Printf("AUTHENTICATED=%t\n", status.Authenticated)
	fmt.Printf("USER_ID=%s\n", status.UserID)
	fmt.Printf("USERNAME=%s\n", status.Username)
	fmt.Printf("DISPLAY_NAME=%s\n", status.DisplayName)
	if status.TokenExpired {
		fmt.Println("TOKEN_STATUS=expired (will auto-refresh on next API call)")
	} else {
		fmt.Printf("TOKEN_MINUTES_LEFT=%d\n", status.MinutesRemaining)
	}
	if status.HasRefreshToken {
		fmt.Println("REFRESH_TOKEN=present")
	} else {
		fmt.Println("REFRESH_TOKEN=missing")
	}
	return nil
}

func newRefreshTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-token",
		Short: "Refresh the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(client *api.Client) {
				runErr = runRefreshToken(cmd, client)
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}
}

func runRefreshToken(cmd *cobra.Command, client *api.Client) error {
	if err := client.ForceRefresh(cmd.Context()); err != nil {
		return err
	}
	status, err := client.CheckAuth()
	if err != nil {
		return err
	}
	fmt.Println("SUCCESS=Token refreshed")
	fmt.Printf("TOKEN_MINUTES_LEFT=%d\n", status.MinutesRemaining)
	return nil
}
