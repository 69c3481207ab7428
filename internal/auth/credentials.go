package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// DefaultCredentialsFile is the default location of the credential record,
// relative to the user's home directory.
const DefaultCredentialsFile = ".offmind/credentials.json"

// Credentials is the single persisted credential record for this
// installation.
type Credentials struct {
	// AccessToken is the short-lived bearer token for the proxy API.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token exchanged for new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the provider-reported expiry of AccessToken, in UTC. It is
	// never guessed or extended locally.
	ExpiresAt time.Time `json:"expires_at"`

	// AccountID is the stable identifier of the signed-in account, kept for
	// diagnostics and mismatch detection.
	AccountID string `json:"account_identifier,omitempty"`
}

// Valid reports whether the access token is usable for at least margin more.
func (c *Credentials) Valid(margin time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(c.ExpiresAt) > margin
}

// Token converts the record to an oauth2.Token for use with the oauth2
// package's token sources.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}

// credentialsFromToken builds a record from a provider token response.
// The account identifier is read from the response extras when the provider
// includes one.
func credentialsFromToken(tok *oauth2.Token, fallbackAccount string) *Credentials {
	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UTC(),
		AccountID:    fallbackAccount,
	}
	for _, key := range []string{"email", "user_id", "account_id"} {
		if v, ok := tok.Extra(key).(string); ok && v != "" {
			creds.AccountID = v
			break
		}
	}
	return creds
}

// Store persists the credential record on disk. Every Load re-reads from
// disk, so the file's atomic-write discipline is the only synchronization
// between processes sharing an installation.
type Store struct {
	path string
}

// NewStore creates a store at the given path. An empty path selects the
// default location under the user's home directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		path = filepath.Join(home, DefaultCredentialsFile)
	}
	return &Store{path: path}, nil
}

// Path returns the location of the credential file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the credential record from disk. Returns ErrNoCredentials when
// no record exists.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return &creds, nil
}

// Save atomically replaces the credential record. The record is written to a
// temp file in the same directory and renamed into place, so a reader never
// observes a partially written record and a crash mid-write leaves the
// previous record intact.
func (s *Store) Save(creds *Credentials) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set credentials file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp credentials file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// Delete removes the credential record. Deleting a record that does not
// exist is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials file: %w", err)
	}
	return nil
}
