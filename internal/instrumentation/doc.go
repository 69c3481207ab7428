// Package instrumentation provides OpenTelemetry metrics, optional tracing,
// and audit logging for the MCP server.
//
// Metrics cover the surfaces that matter for a credential-managing adapter:
// tool invocations, proxy API operations, interactive sign-ins, and token
// refreshes. The metrics exporter is selected via environment configuration
// (Prometheus by default, with OTLP and stdout alternatives); traces are off
// unless explicitly enabled.
//
// Audit logging records every tool invocation with its outcome. Account
// identifiers are hashed unless PII inclusion is explicitly configured.
package instrumentation
