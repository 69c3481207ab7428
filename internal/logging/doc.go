// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys so log entries stay queryable across
// components, plus sanitizers for sensitive values: tokens are never logged
// (only their length) and account identifiers are hashed before logging.
package logging
