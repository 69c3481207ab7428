package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"github.com/offmind/offmind-mcp/internal/auth"
)

const (
	// defaultAPIURL is the hosted Offmind proxy. Override with --api-url or
	// OFFMIND_API_URL for self-hosted deployments.
	defaultAPIURL = "https://offmind-proxy-798066310667.europe-west1.run.app"
)

// authConfig holds the settings shared by the serve, login and logout
// commands: where the proxy lives, how to reach its identity provider, and
// where the credential record is stored.
type authConfig struct {
	APIURL          string
	ClientID        string
	AuthURL         string
	TokenURL        string
	CredentialsFile string
}

// resolveEnv fills unset fields from environment variables, then derives the
// provider endpoints from the API URL when they are not configured
// explicitly. The sign-in landing page lives at the proxy root and the code
// exchange at /auth/oauth/exchange.
func (c *authConfig) resolveEnv() error {
	if c.APIURL == "" {
		c.APIURL = os.Getenv("OFFMIND_API_URL")
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	if c.ClientID == "" {
		c.ClientID = os.Getenv("OFFMIND_CLIENT_ID")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required: set --client-id or OFFMIND_CLIENT_ID")
	}

	if c.AuthURL == "" {
		c.AuthURL = os.Getenv("OFFMIND_AUTH_URL")
	}
	if c.AuthURL == "" {
		c.AuthURL = c.APIURL + "/"
	}
	if c.TokenURL == "" {
		c.TokenURL = os.Getenv("OFFMIND_TOKEN_URL")
	}
	if c.TokenURL == "" {
		c.TokenURL = c.APIURL + "/auth/oauth/exchange"
	}

	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("OFFMIND_CREDENTIALS_FILE")
	}
	return nil
}

// oauthConfig builds the OAuth2 client configuration for the identity
// provider. The redirect URL is filled in per flow once the loopback
// listener knows its port.
func (c *authConfig) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
	}
}

// newStore opens the credential store at the configured location, falling
// back to the default path under the user's home directory.
func (c *authConfig) newStore() (*auth.Store, error) {
	return auth.NewStore(c.CredentialsFile)
}

// addAuthFlags registers the flags shared by serve, login and logout.
func addAuthFlags(fs *pflag.FlagSet, c *authConfig) {
	fs.StringVar(&c.APIURL, "api-url", "", "Offmind proxy API URL. Can also use OFFMIND_API_URL env var.")
	fs.StringVar(&c.ClientID, "client-id", "", "OAuth client ID for the identity provider. Can also use OFFMIND_CLIENT_ID env var.")
	fs.StringVar(&c.CredentialsFile, "credentials-file", "", "Path to the credential file (default ~/.offmind/credentials.json). Can also use OFFMIND_CREDENTIALS_FILE env var.")
}

// newLogger builds the process logger. stdout carries the MCP protocol for
// the stdio transport, so all logging goes to stderr.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
