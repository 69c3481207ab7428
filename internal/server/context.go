package server

import (
	"context"
	"sync"

	"github.com/offmind/offmind-mcp/internal/auth"
	"github.com/offmind/offmind-mcp/internal/instrumentation"
	"github.com/offmind/offmind-mcp/internal/offmind"
)

// ServerContext holds the shared state for the MCP server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	authManager *auth.Manager
	client      *offmind.Client

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// ContextOption configures a ServerContext.
type ContextOption func(*ServerContext)

// WithMetrics attaches the metrics recorder used by instrumented tool
// handlers.
func WithMetrics(metrics *instrumentation.Metrics) ContextOption {
	return func(sc *ServerContext) {
		sc.metrics = metrics
	}
}

// WithAuditLogger attaches the audit logger for tool invocations.
func WithAuditLogger(auditLogger *instrumentation.AuditLogger) ContextOption {
	return func(sc *ServerContext) {
		sc.auditLogger = auditLogger
	}
}

// NewServerContext creates a server context wrapping the credential manager
// and proxy client.
func NewServerContext(ctx context.Context, authManager *auth.Manager, client *offmind.Client, opts ...ContextOption) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		authManager: authManager,
		client:      client,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server's base context, cancelled on shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// AuthManager returns the credential manager.
func (sc *ServerContext) AuthManager() *auth.Manager {
	return sc.authManager
}

// Client returns the authenticated proxy API client.
func (sc *ServerContext) Client() *offmind.Client {
	return sc.client
}

// Metrics returns the metrics recorder, or nil when instrumentation is not
// configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
