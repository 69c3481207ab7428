package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/offmind/offmind-mcp/internal/instrumentation"
	"github.com/offmind/offmind-mcp/internal/logging"
)

const (
	// DefaultExpiryMargin is how long before expiry a stored access token is
	// treated as stale and refreshed.
	DefaultExpiryMargin = 60 * time.Second

	// providerTimeout bounds every call to the identity provider's token
	// endpoint so a hung provider never hangs the dispatcher.
	providerTimeout = 30 * time.Second

	// refreshFlightKey keys the single-flight group. There is only one
	// credential per installation, so all refreshes share one key.
	refreshFlightKey = "refresh"
)

// Authenticator establishes credentials from scratch via user interaction.
// It is implemented by Flow; tests substitute fakes.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Credentials, error)
}

// Manager keeps a valid access token available. It is the only component
// that decides when to refresh: callers ask for a token and get one that is
// guaranteed not to be within the expiry margin.
type Manager struct {
	store   *Store
	conf    *oauth2.Config
	authn   Authenticator
	margin  time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	group singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAuthenticator wires the interactive sign-in flow invoked when no
// usable credential is stored. Without one, an empty store surfaces
// ErrNoCredentials instead of opening a browser.
func WithAuthenticator(authn Authenticator) ManagerOption {
	return func(m *Manager) {
		m.authn = authn
	}
}

// WithExpiryMargin overrides the refresh safety margin.
func WithExpiryMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) {
		m.margin = margin
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics enables sign-in and refresh metrics.
func WithMetrics(metrics *instrumentation.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a credential manager backed by the given store and
// provider configuration.
func NewManager(store *Store, conf *oauth2.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		conf:   conf,
		margin: DefaultExpiryMargin,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid access token, refreshing or re-authenticating as
// needed. When the stored token is comfortably inside its lifetime this
// makes no network call.
func (m *Manager) Token(ctx context.Context) (string, error) {
	creds, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoCredentials) {
			m.logger.Warn("stored credentials unusable, re-authenticating", logging.Err(err))
		}
		return m.refresh(ctx, "")
	}

	if creds.Valid(m.margin) {
		return creds.AccessToken, nil
	}
	return m.refresh(ctx, "")
}

// ForceRefresh discards staleToken and obtains a fresh access token even if
// the stored record still looks valid. Used by the authenticated client when
// the proxy rejects a token that had not yet reached its local expiry.
func (m *Manager) ForceRefresh(ctx context.Context, staleToken string) (string, error) {
	return m.refresh(ctx, staleToken)
}

// Account returns the stored account identifier, or empty when signed out.
func (m *Manager) Account() string {
	creds, err := m.store.Load()
	if err != nil {
		return ""
	}
	return creds.AccountID
}

// refresh is the single-flight section. Concurrent callers share one
// in-flight refresh; redundant provider calls would race on store writes and
// can invalidate rotated refresh tokens.
func (m *Manager) refresh(ctx context.Context, staleToken string) (string, error) {
	v, err, _ := m.group.Do(refreshFlightKey, func() (interface{}, error) {
		return m.refreshLocked(ctx, staleToken)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refreshLocked(ctx context.Context, staleToken string) (string, error) {
	// Re-read from disk first: a concurrent flight in this process or a
	// refresh by another process may already have produced a fresh token.
	// Losing that race is fine, we just use its result.
	creds, err := m.store.Load()
	if err != nil {
		return m.signIn(ctx)
	}
	if creds.Valid(m.margin) && creds.AccessToken != staleToken {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		m.logger.Warn("stored credentials have no refresh token, re-authenticating")
		return m.signIn(ctx)
	}

	tok, err := m.exchangeRefreshToken(ctx, creds)
	if err != nil {
		if isGrantRevoked(err) {
			// The refresh token itself was rejected. The record cannot reach
			// a usable state, so remove it and start over.
			m.logger.Warn("refresh token revoked, re-authenticating", logging.Err(err))
			m.recordRefresh(ctx, instrumentation.OAuthResultExpired)
			if delErr := m.store.Delete(); delErr != nil {
				return "", delErr
			}
			return m.signIn(ctx)
		}
		m.recordRefresh(ctx, instrumentation.OAuthResultFailure)
		return "", fmt.Errorf("%w: %s", ErrRefreshTransient, err)
	}

	next := credentialsFromToken(tok, creds.AccountID)
	if next.RefreshToken == "" {
		// Providers that do not rotate refresh tokens omit them from the
		// refresh response; keep the one we have.
		next.RefreshToken = creds.RefreshToken
	}
	if err := m.store.Save(next); err != nil {
		return "", err
	}

	m.recordRefresh(ctx, instrumentation.OAuthResultSuccess)
	m.logger.Debug("access token refreshed",
		slog.Time("expires_at", next.ExpiresAt),
		logging.Account(next.AccountID))
	return next.AccessToken, nil
}

// exchangeRefreshToken trades the stored refresh token for a new token pair
// at the provider's token endpoint.
func (m *Manager) exchangeRefreshToken(ctx context.Context, creds *Credentials) (*oauth2.Token, error) {
	src := m.conf.TokenSource(withProviderClient(ctx), &oauth2.Token{
		RefreshToken: creds.RefreshToken,
	})
	return src.Token()
}

func (m *Manager) signIn(ctx context.Context) (string, error) {
	if m.authn == nil {
		return "", ErrNoCredentials
	}

	creds, err := m.authn.Authenticate(ctx)
	if err != nil {
		m.recordSignIn(ctx, instrumentation.OAuthResultFailure)
		return "", err
	}
	m.recordSignIn(ctx, instrumentation.OAuthResultSuccess)
	return creds.AccessToken, nil
}

func (m *Manager) recordSignIn(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordSignIn(ctx, result)
	}
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

// withProviderClient installs a bounded-timeout HTTP client for the oauth2
// package to use on provider calls.
func withProviderClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout: providerTimeout,
	})
}
