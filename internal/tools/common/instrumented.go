package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/offmind/offmind-mcp/internal/instrumentation"
	"github.com/offmind/offmind-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with metrics and audit
// logging. The proxy operation name feeds the per-operation metrics; pass an
// empty operation for tools without a single backing operation.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", "list_tasks", sc, handler))
func InstrumentedToolHandler(
	toolName, operation string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// No instrumentation configured, nothing to record
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)
		if operation != "" {
			invocation.WithOperation(operation)
		}
		if account := sc.AuthManager().Account(); account != "" {
			invocation.WithAccount(account)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				invocation.CompleteWithError(err)
			} else {
				invocation.Complete(false, nil)
			}
		} else {
			invocation.CompleteSuccess()
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
