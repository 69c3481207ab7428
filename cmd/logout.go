package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/offmind/offmind-mcp/internal/auth"
)

func newLogoutCmd() *cobra.Command {
	var credentialsFile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored Offmind credential",
		Long: `Delete the persisted credential record.

The next serve or login run will go through the browser sign-in again. Use
this to switch accounts or to reset a credential the provider no longer
accepts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if credentialsFile == "" {
				credentialsFile = os.Getenv("OFFMIND_CREDENTIALS_FILE")
			}

			store, err := auth.NewStore(credentialsFile)
			if err != nil {
				return err
			}

			if err := store.Delete(); err != nil {
				return fmt.Errorf("failed to delete credentials: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed out. Removed %s.\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Path to the credential file (default ~/.offmind/credentials.json). Can also use OFFMIND_CREDENTIALS_FILE env var.")

	return cmd
}
