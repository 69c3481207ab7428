// Package task_tools registers the MCP tools for querying and mutating
// Offmind tasks and recurrent tasks. Arguments are validated structurally
// before any network call; validation failures come back as MCP error
// results without touching the proxy.
package task_tools
