// Package server holds the shared state behind the MCP tool handlers: the
// credential manager, the proxy API client, and the instrumentation hooks.
// Handlers reach all of it through a ServerContext, which is safe for
// concurrent use and shuts down exactly once.
//
// A dedicated Prometheus metrics server can be started alongside the stdio
// transport; it binds its own port so operational metrics never mix with the
// MCP channel.
package server
