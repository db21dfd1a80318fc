package main

import (
	"errors"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/postline/xpost/internal/api"
	"github.com/postline/xpost/internal/authflow"
	"github.com/postline/xpost/internal/config"
	"github.com/postline/xpost/internal/credentials"
	"github.com/postline/xpost/internal/logger"
)

// Exit codes, one per failure class, so scripted callers can branch on them.
const (
	exitFailure        = 1
	exitNotConfigured  = 2
	exitReauthRequired = 3
	exitValidation     = 4
	exitAPI            = 5
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xpost",
	Short: "Post to X from the terminal",
	Long: `xpost authenticates to X via OAuth 2.0 with PKCE and posts on behalf
of one account. Run setup once, then use post-text / post-image. Output is
machine-parsable KEY=VALUE lines on stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newSetupCmd(),
		newCheckAuthCmd(),
		newRefreshTokenCmd(),
		newPostTextCmd(),
		newPostImageCmd(),
		newUploadMediaCmd(),
	)
}

// exitCodeFor maps the error taxonomy to the documented exit codes.
func exitCodeFor(err error) int {
	var validationErr *api.ValidationError
	var apiErr *api.APIError
	var netErr *api.NetworkError
	switch {
	case errors.Is(err, credentials.ErrNotConfigured):
		return exitNotConfigured
	case errors.Is(err, api.ErrReauthRequired):
		return exitReauthRequired
	case errors.As(err, &validationErr):
		return exitValidation
	case errors.As(err, &apiErr),
		errors.As(err, &netErr),
		errors.Is(err, authflow.ErrExchangeFailed),
		errors.Is(err, authflow.ErrCallbackTimeout),
		errors.Is(err, authflow.ErrStateMismatch):
		return exitAPI
	default:
		return exitFailure
	}
}

// withApp assembles the dependency graph and runs invoke with it. Command
// errors are captured by the closure itself; only wiring failures come back
// from here.
func withApp(invoke interface{}) error {
	app := fx.New(
		fx.NopLogger,
		fx.Provide(config.Load),
		fx.Invoke(func(cfg *config.Config) error {
			return logger.InitLogger(&cfg.Logging)
		}),
		credentials.Module,
		api.Module,
		authflow.Module,
		fx.Invoke(invoke),
	)
	defer func() { _ = logger.Sync() }()
	return app.Err()
}
