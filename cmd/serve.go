package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/offmind/offmind-mcp/internal/auth"
	"github.com/offmind/offmind-mcp/internal/instrumentation"
	"github.com/offmind/offmind-mcp/internal/logging"
	"github.com/offmind/offmind-mcp/internal/offmind"
	"github.com/offmind/offmind-mcp/internal/server"
	"github.com/offmind/offmind-mcp/internal/tools/task_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: false)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		authCfg        authConfig
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the Offmind task
list tools over the stdio transport.

The first tool call triggers a one-time browser sign-in; afterwards the
credential is kept fresh automatically. Run 'offmind-mcp login' beforehand
to sign in from the terminal instead.

Configuration:
  --api-url or OFFMIND_API_URL           Offmind proxy URL
  --client-id or OFFMIND_CLIENT_ID       OAuth client ID (required)
  --credentials-file or OFFMIND_CREDENTIALS_FILE
                                         Credential file location`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authCfg.resolveEnv(); err != nil {
				return err
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			loadMetricsEnvVars(cmd, &metricsConfig)

			return runServe(authCfg, debugMode, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	addAuthFlags(cmd.Flags(), &authCfg)

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars loads metrics configuration from environment variables.
// Environment variables only apply when the flag was not explicitly set.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "true" {
			config.Enabled = true
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(authCfg authConfig, debugMode bool, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the MCP protocol, so the process logger writes to stderr
	logger := newLogger(debugMode)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start the metrics server on its own port so the stdio channel stays
	// clean. Requires the prometheus exporter.
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() && provider.PrometheusActive() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     metricsConfig.Addr,
			Provider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		logger.Info("metrics server listening", "addr", metricsServer.Addr())
	} else if metricsConfig.Enabled {
		logger.Warn("metrics server disabled: prometheus exporter not active")
	}
	defer func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
	}()

	// Wire the credential lifecycle: store -> sign-in flow -> refresher.
	store, err := authCfg.newStore()
	if err != nil {
		return err
	}

	conf := authCfg.oauthConfig()
	flow := auth.NewFlow(conf, store, auth.WithFlowLogger(logger))

	managerOpts := []auth.ManagerOption{
		auth.WithAuthenticator(flow),
		auth.WithLogger(logger),
	}
	if provider.Enabled() {
		managerOpts = append(managerOpts, auth.WithMetrics(provider.Metrics()))
	}
	manager := auth.NewManager(store, conf, managerOpts...)

	clientOpts := []offmind.ClientOption{
		offmind.WithClientLogger(logger),
	}
	if provider.Enabled() {
		clientOpts = append(clientOpts, offmind.WithClientMetrics(provider.Metrics()))
	}
	client := offmind.NewClient(authCfg.APIURL, manager, clientOpts...)

	// Create server context with instrumentation for tool handlers
	contextOpts := []server.ContextOption{}
	if provider.Enabled() {
		contextOpts = append(contextOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		)
	}
	serverContext := server.NewServerContext(shutdownCtx, manager, client, contextOpts...)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("offmind-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := task_tools.RegisterTaskTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}

	return runStdioServer(shutdownCtx, mcpSrv)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
