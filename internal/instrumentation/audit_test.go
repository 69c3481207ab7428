package instrumentation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

const (
	testAccountID  = "user-7Hq2"
	testTraceID    = "abc123def456"
	testSpanID     = "span789"
	testToolGet    = "get_tasks"
	testToolCreate = "create_task"
	testToolToggle = "toggle_task"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolGet)

	// Verify initial state
	if ti.Tool != testToolGet {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolGet)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	// Duration is calculated from StartTime, so it should be >= 0
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolCreate)
	err := errors.New("permission denied")

	ti.CompleteWithError(err)

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", ti.Error, "permission denied")
	}
}

func TestToolInvocation_WithAccount(t *testing.T) {
	ti := NewToolInvocation(testToolGet)
	ti.WithAccount(testAccountID)

	if ti.Account != testAccountID {
		t.Errorf("Account = %q, want %q", ti.Account, testAccountID)
	}
}

func TestToolInvocation_WithOperation(t *testing.T) {
	ti := NewToolInvocation(testToolGet)
	ti.WithOperation("list_tasks")

	if ti.Operation != "list_tasks" {
		t.Errorf("Operation = %q, want %q", ti.Operation, "list_tasks")
	}
}

func TestToolInvocation_Status(t *testing.T) {
	ti := NewToolInvocation("test")

	ti.Success = true
	if status := ti.Status(); status != StatusSuccess {
		t.Errorf("Status() = %q, want %q", status, StatusSuccess)
	}

	ti.Success = false
	if status := ti.Status(); status != StatusError {
		t.Errorf("Status() = %q, want %q", status, StatusError)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolToggle)
	ti.WithAccount(testAccountID).
		WithOperation("toggle_task").
		CompleteSuccess()
	ti.TraceID = testTraceID

	attrs := ti.LogAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	requiredKeys := []string{"tool", "duration", "success", "account_hash", "operation", "trace_id"}
	for _, key := range requiredKeys {
		if _, ok := attrMap[key]; !ok {
			t.Errorf("Missing required attribute: %s", key)
		}
	}

	// The account must be hashed, never raw
	if hash := attrMap["account_hash"].Value.String(); hash == testAccountID {
		t.Error("account_hash should not contain the raw account identifier")
	}
}

func TestToolInvocation_LogAttrs_WithError(t *testing.T) {
	ti := NewToolInvocation(testToolCreate)
	ti.WithAccount(testAccountID).
		CompleteWithError(errors.New("test error"))

	attrs := ti.LogAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	if _, ok := attrMap["error"]; !ok {
		t.Error("Missing error attribute")
	}
	if errVal := attrMap["error"].Value.String(); errVal != "test error" {
		t.Errorf("error = %q, want %q", errVal, "test error")
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	ti := NewToolInvocation(testToolGet)
	ti.CompleteSuccess()

	attrs := ti.LogAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// These should NOT be present when not set
	if _, ok := attrMap["account_hash"]; ok {
		t.Error("account_hash should not be present when empty")
	}
	if _, ok := attrMap["operation"]; ok {
		t.Error("operation should not be present when empty")
	}
	if _, ok := attrMap["trace_id"]; ok {
		t.Error("trace_id should not be present when empty")
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolToggle)
	ti.WithAccount(testAccountID).
		WithOperation("toggle_task").
		CompleteSuccess()
	ti.TraceID = testTraceID
	ti.SpanID = testSpanID

	attrs := ti.LogAuditAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// The full audit form carries the raw account identifier
	if account := attrMap["account"].Value.String(); account != testAccountID {
		t.Errorf("account = %q, want %q", account, testAccountID)
	}

	if traceID := attrMap["trace_id"].Value.String(); traceID != testTraceID {
		t.Errorf("trace_id = %q, want %q", traceID, testTraceID)
	}
	if spanID := attrMap["span_id"].Value.String(); spanID != testSpanID {
		t.Errorf("span_id = %q, want %q", spanID, testSpanID)
	}
}

func TestToolInvocation_MethodChaining(t *testing.T) {
	ti := NewToolInvocation(testToolGet).
		WithAccount(testAccountID).
		WithOperation("list_tasks").
		CompleteSuccess()

	if ti.Tool != testToolGet {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolGet)
	}
	if ti.Account != testAccountID {
		t.Errorf("Account = %q, want %q", ti.Account, testAccountID)
	}
	if ti.Operation != "list_tasks" {
		t.Errorf("Operation = %q, want %q", ti.Operation, "list_tasks")
	}
	if !ti.Success {
		t.Error("Success should be true")
	}
}

func TestAuditLogger_New(t *testing.T) {
	// Test with nil logger (should use default)
	al := NewAuditLogger(nil, AuditLoggingConfig{Enabled: true})
	if al.logger == nil {
		t.Error("logger should not be nil when created with nil")
	}

	// Test with custom logger
	logger := slog.Default()
	al = NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})
	if al.logger != logger {
		t.Error("logger should be the provided logger")
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	al := NewAuditLogger(slog.Default(), AuditLoggingConfig{Enabled: true})

	// Should not panic for either outcome
	al.LogToolInvocation(NewToolInvocation(testToolGet).
		WithAccount(testAccountID).
		CompleteSuccess())
	al.LogToolInvocation(NewToolInvocation(testToolCreate).
		WithAccount(testAccountID).
		CompleteWithError(errors.New("test error")))
}

func TestAuditLogger_Disabled(t *testing.T) {
	al := NewAuditLogger(slog.Default(), AuditLoggingConfig{Enabled: false})

	// Should not panic, should be a no-op
	al.LogToolInvocation(NewToolInvocation(testToolGet).CompleteSuccess())

	// A nil logger must also be safe
	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testToolGet).CompleteSuccess())
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ctx := context.Background()
	ti := NewToolInvocation("test").WithSpanContext(ctx)

	if ti.TraceID != "" {
		t.Errorf("TraceID = %q, want empty string", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID = %q, want empty string", ti.SpanID)
	}
}

func TestToolInvocation_Complete_NilError(t *testing.T) {
	ti := NewToolInvocation("test")
	ti.Complete(true, nil)

	if ti.Error != "" {
		t.Errorf("Error = %q, want empty string", ti.Error)
	}
}
