package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the offmind-mcp application
var rootCmd = &cobra.Command{
	Use:   "offmind-mcp",
	Short: "MCP server for the Offmind task list",
	Long: `offmind-mcp exposes a user's Offmind task list to AI assistants as a set
of MCP (Model Context Protocol) tools.

The server signs in once through the browser, keeps the credential fresh
across restarts, and attaches a valid bearer token to every task API call.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "offmind-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
}
