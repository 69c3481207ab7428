package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/offmind/offmind-mcp/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var (
		debugMode bool
		authCfg   authConfig
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Offmind through the browser",
		Long: `Run the interactive browser sign-in and persist the credential.

A browser window opens on the Offmind consent page; if it cannot be opened
the URL is printed for manual use. The resulting credential is stored and
reused by the serve command until it is revoked or removed with
'offmind-mcp logout'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authCfg.resolveEnv(); err != nil {
				return err
			}

			store, err := authCfg.newStore()
			if err != nil {
				return err
			}

			flow := auth.NewFlow(authCfg.oauthConfig(), store,
				auth.WithFlowLogger(newLogger(debugMode)),
				auth.WithFlowTimeout(timeout),
				auth.WithFlowPrompt(cmd.OutOrStdout()),
			)

			creds, err := flow.Authenticate(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Credential stored in %s (account %s).\n",
				store.Path(), creds.AccountID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().DurationVar(&timeout, "timeout", auth.DefaultFlowTimeout, "How long to wait for the browser sign-in to complete")
	addAuthFlags(cmd.Flags(), &authCfg)

	return cmd
}
