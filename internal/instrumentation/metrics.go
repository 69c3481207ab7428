package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a no-op recorder, used when instrumentation is disabled.
type Metrics struct {
	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Proxy API metrics
	proxyOperationsTotal   metric.Int64Counter
	proxyOperationDuration metric.Float64Histogram

	// Credential lifecycle metrics
	signInTotal       metric.Int64Counter
	tokenRefreshTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.proxyOperationsTotal, err = meter.Int64Counter(
		"proxy_api_operations_total",
		metric.WithDescription("Total number of proxy API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy_api_operations_total counter: %w", err)
	}

	m.proxyOperationDuration, err = meter.Float64Histogram(
		"proxy_api_operation_duration_seconds",
		metric.WithDescription("Proxy API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy_api_operation_duration_seconds histogram: %w", err)
	}

	m.signInTotal, err = meter.Int64Counter(
		"oauth_sign_in_total",
		metric.WithDescription("Total number of interactive sign-in attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_sign_in_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records an MCP tool invocation with its status and
// duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProxyOperation records a proxy API operation (e.g. "list_tasks",
// "create_task") with its status and duration.
func (m *Metrics) RecordProxyOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.proxyOperationsTotal == nil || m.proxyOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.proxyOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.proxyOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSignIn records an interactive sign-in attempt.
// Result should be one of: "success", "failure".
func (m *Metrics) RecordSignIn(ctx context.Context, result string) {
	if m == nil || m.signInTotal == nil {
		return // Instrumentation not initialized
	}

	m.signInTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh records a token refresh attempt.
// Result should be one of: "success", "failure", "expired".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
