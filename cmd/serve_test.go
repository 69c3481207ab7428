package cmd

import (
	"testing"
)

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		config      MetricsConfig
		wantEnabled bool
		wantAddr    string
	}{
		{
			name:        "no environment",
			config:      MetricsConfig{Addr: ":9090"},
			wantEnabled: false,
			wantAddr:    ":9090",
		},
		{
			name:        "enabled via env",
			env:         map[string]string{"METRICS_ENABLED": "true"},
			config:      MetricsConfig{Addr: ":9090"},
			wantEnabled: true,
			wantAddr:    ":9090",
		},
		{
			name:        "addr via env",
			env:         map[string]string{"METRICS_ADDR": ":9191"},
			config:      MetricsConfig{Addr: ":9090"},
			wantEnabled: false,
			wantAddr:    ":9191",
		},
		{
			name:        "env value other than true ignored",
			env:         map[string]string{"METRICS_ENABLED": "1"},
			config:      MetricsConfig{Addr: ":9090"},
			wantEnabled: false,
			wantAddr:    ":9090",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cmd := newServeCmd()
			config := tt.config
			loadMetricsEnvVars(cmd, &config)

			if config.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", config.Enabled, tt.wantEnabled)
			}
			if config.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", config.Addr, tt.wantAddr)
			}
		})
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := newServeCmd()

	for _, flag := range []string{"debug", "api-url", "client-id", "credentials-file", "metrics-enabled", "metrics-addr"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve command is missing flag %q", flag)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "login": false, "logout": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}
