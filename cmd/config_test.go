package cmd

import (
	"testing"
)

func TestAuthConfigResolveEnv(t *testing.T) {
	tests := []struct {
		name         string
		cfg          authConfig
		env          map[string]string
		wantErr      bool
		wantAPIURL   string
		wantAuthURL  string
		wantTokenURL string
	}{
		{
			name:    "missing client ID",
			cfg:     authConfig{},
			wantErr: true,
		},
		{
			name:         "defaults derived from api url",
			cfg:          authConfig{APIURL: "https://tasks.example.com", ClientID: "client-1"},
			wantAPIURL:   "https://tasks.example.com",
			wantAuthURL:  "https://tasks.example.com/",
			wantTokenURL: "https://tasks.example.com/auth/oauth/exchange",
		},
		{
			name:         "trailing slash trimmed",
			cfg:          authConfig{APIURL: "https://tasks.example.com/", ClientID: "client-1"},
			wantAPIURL:   "https://tasks.example.com",
			wantAuthURL:  "https://tasks.example.com/",
			wantTokenURL: "https://tasks.example.com/auth/oauth/exchange",
		},
		{
			name: "environment fallbacks",
			cfg:  authConfig{},
			env: map[string]string{
				"OFFMIND_API_URL":   "https://env.example.com",
				"OFFMIND_CLIENT_ID": "env-client",
			},
			wantAPIURL:   "https://env.example.com",
			wantAuthURL:  "https://env.example.com/",
			wantTokenURL: "https://env.example.com/auth/oauth/exchange",
		},
		{
			name: "explicit endpoints win",
			cfg: authConfig{
				APIURL:   "https://tasks.example.com",
				ClientID: "client-1",
				AuthURL:  "https://id.example.com/authorize",
				TokenURL: "https://id.example.com/token",
			},
			wantAPIURL:   "https://tasks.example.com",
			wantAuthURL:  "https://id.example.com/authorize",
			wantTokenURL: "https://id.example.com/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := tt.cfg
			err := cfg.resolveEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveEnv() error = %v", err)
			}
			if cfg.APIURL != tt.wantAPIURL {
				t.Errorf("APIURL = %q, want %q", cfg.APIURL, tt.wantAPIURL)
			}
			if cfg.AuthURL != tt.wantAuthURL {
				t.Errorf("AuthURL = %q, want %q", cfg.AuthURL, tt.wantAuthURL)
			}
			if cfg.TokenURL != tt.wantTokenURL {
				t.Errorf("TokenURL = %q, want %q", cfg.TokenURL, tt.wantTokenURL)
			}
		})
	}
}

func TestAuthConfigOAuthConfig(t *testing.T) {
	cfg := authConfig{
		ClientID: "client-1",
		AuthURL:  "https://id.example.com/authorize",
		TokenURL: "https://id.example.com/token",
	}

	conf := cfg.oauthConfig()
	if conf.ClientID != "client-1" {
		t.Errorf("ClientID = %q, want %q", conf.ClientID, "client-1")
	}
	if conf.Endpoint.AuthURL != cfg.AuthURL {
		t.Errorf("AuthURL = %q, want %q", conf.Endpoint.AuthURL, cfg.AuthURL)
	}
	if conf.Endpoint.TokenURL != cfg.TokenURL {
		t.Errorf("TokenURL = %q, want %q", conf.Endpoint.TokenURL, cfg.TokenURL)
	}
	if conf.RedirectURL != "" {
		t.Errorf("RedirectURL should be empty until a flow starts, got %q", conf.RedirectURL)
	}
}
