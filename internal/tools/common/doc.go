// Package common provides shared helpers for MCP tool handlers, notably the
// instrumented handler wrapper that records metrics and audit entries around
// every tool invocation.
package common
