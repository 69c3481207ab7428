// Package cmd implements the command-line interface for offmind-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the Offmind task tools over stdio
//   - login: Run the interactive browser sign-in and persist the credential
//   - logout: Delete the persisted credential
//
// The serve command is the default command when no subcommand is specified.
package cmd
