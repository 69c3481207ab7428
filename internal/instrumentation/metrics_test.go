package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordToolInvocation(ctx, "get_tasks", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "create_task", StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordProxyOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordProxyOperation(ctx, "list_tasks", StatusSuccess, 200*time.Millisecond)
	metrics.RecordProxyOperation(ctx, "create_task", StatusError, 500*time.Millisecond)
	metrics.RecordProxyOperation(ctx, "toggle_task", StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordSignIn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordSignIn(ctx, OAuthResultSuccess)
	metrics.RecordSignIn(ctx, OAuthResultFailure)
}

func TestMetrics_RecordTokenRefresh(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordTokenRefresh(ctx, OAuthResultSuccess)
	metrics.RecordTokenRefresh(ctx, OAuthResultFailure)
	metrics.RecordTokenRefresh(ctx, OAuthResultExpired)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying instruments
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, 100*time.Millisecond)
	metrics.RecordProxyOperation(ctx, "list_tasks", StatusSuccess, 200*time.Millisecond)
	metrics.RecordSignIn(ctx, OAuthResultSuccess)
	metrics.RecordTokenRefresh(ctx, OAuthResultSuccess)
}

func TestMetrics_NilReceiverSafe(t *testing.T) {
	ctx := context.Background()

	// A nil *Metrics must also be safe to call; components treat metrics
	// as optional.
	var metrics *Metrics
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, time.Millisecond)
	metrics.RecordProxyOperation(ctx, "list_tasks", StatusSuccess, time.Millisecond)
	metrics.RecordSignIn(ctx, OAuthResultSuccess)
	metrics.RecordTokenRefresh(ctx, OAuthResultSuccess)
}
