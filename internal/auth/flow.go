package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/offmind/offmind-mcp/internal/logging"
)

// DefaultFlowTimeout bounds how long the sign-in flow waits for the provider
// to redirect back before giving up.
const DefaultFlowTimeout = 2 * time.Minute

// Flow runs the one-time interactive browser sign-in. It starts a loopback
// callback listener on an ephemeral port, sends the user to the provider's
// consent page, and exchanges the returned authorization code for the
// initial credential record.
type Flow struct {
	conf    *oauth2.Config
	store   *Store
	logger  *slog.Logger
	timeout time.Duration

	// prompt receives the consent URL for manual use when the browser cannot
	// be opened. Defaults to stderr so the MCP stdio channel stays clean.
	prompt io.Writer

	// openURL is swapped out in tests.
	openURL func(url string) error
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithFlowTimeout sets the bounded wait for the provider redirect.
func WithFlowTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		f.timeout = timeout
	}
}

// WithFlowLogger sets a custom logger.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithFlowPrompt sets the writer that receives user-facing flow messages.
func WithFlowPrompt(w io.Writer) FlowOption {
	return func(f *Flow) {
		f.prompt = w
	}
}

// withFlowOpener overrides how the consent URL is opened. Test hook.
func withFlowOpener(open func(url string) error) FlowOption {
	return func(f *Flow) {
		f.openURL = open
	}
}

// NewFlow creates an interactive sign-in flow that persists its result
// through the given store.
func NewFlow(conf *oauth2.Config, store *Store, opts ...FlowOption) *Flow {
	f := &Flow{
		conf:    conf,
		store:   store,
		logger:  slog.Default(),
		timeout: DefaultFlowTimeout,
		prompt:  os.Stderr,
		openURL: openBrowser,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Authenticate runs the sign-in flow to completion and persists the
// resulting credential record. On timeout it returns
// ErrAuthenticationTimeout; if the user denies consent it returns
// ErrAuthenticationDeclined. Neither should be retried without fresh user
// action.
func (f *Flow) Authenticate(ctx context.Context) (*Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	srv, err := newCallbackServer(ctx)
	if err != nil {
		return nil, err
	}
	defer srv.Close()

	state, err := newStateToken()
	if err != nil {
		return nil, err
	}

	// Each flow gets its own config copy because the redirect target carries
	// the ephemeral callback port.
	conf := *f.conf
	conf.RedirectURL = srv.RedirectURI()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)

	fmt.Fprintf(f.prompt, "Opening your browser to sign in.\nIf it does not open, visit:\n%s\n", authURL)
	if err := f.openURL(authURL); err != nil {
		f.logger.Warn("failed to open browser, waiting for manual sign-in", logging.Err(err))
	}

	f.logger.Info("waiting for sign-in callback", slog.String("redirect_uri", srv.RedirectURI()))

	result, err := srv.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrAuthenticationTimeout
		}
		return nil, fmt.Errorf("sign-in callback failed: %w", err)
	}

	if result.isError() {
		f.logger.Warn("provider returned authorization error",
			slog.String("error", result.errorCode),
			slog.String("description", result.errorDescription))
		return nil, fmt.Errorf("%w: %s", ErrAuthenticationDeclined, result.errorCode)
	}

	// CSRF guard: the provider must echo back the per-flow state token.
	if result.state != state {
		return nil, errors.New("state mismatch in sign-in callback, possible CSRF")
	}
	if result.code == "" {
		return nil, errors.New("no authorization code in sign-in callback")
	}

	tok, err := conf.Exchange(withProviderClient(ctx), result.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	creds := credentialsFromToken(tok, "")
	if creds.RefreshToken == "" {
		f.logger.Warn("provider returned no refresh token, re-authentication will be required on expiry")
	}

	if err := f.store.Save(creds); err != nil {
		return nil, err
	}

	f.logger.Info("sign-in complete", logging.Account(creds.AccountID))
	if creds.AccountID != "" {
		fmt.Fprintf(f.prompt, "Signed in as %s.\n", creds.AccountID)
	} else {
		fmt.Fprintln(f.prompt, "Signed in.")
	}
	return creds, nil
}

// newStateToken generates the per-flow random state used for CSRF
// protection.
func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
