// Package auth owns the credential lifecycle for the Offmind proxy API.
//
// It persists a single renewable credential record per installation, runs the
// one-time browser sign-in flow that creates it, and keeps the access token
// valid across process restarts and concurrent callers.
//
// # Credential storage
//
// Credentials live in a single JSON file (~/.offmind/credentials.json by
// default) with owner-only permissions. Writes are atomic (temp file plus
// rename) so a crash mid-write can never corrupt the existing record, and the
// file is the only state shared between processes: every token request
// re-reads it from disk.
//
// # Token refresh
//
// Manager.Token returns a guaranteed-fresh access token. Refreshes are
// single-flight: when many tool handlers race on an expiring token, exactly
// one refresh request reaches the provider and all callers share its result.
// A refresh rejected by the provider as an authorization error deletes the
// stored record and re-runs sign-in; transient failures preserve the record
// and surface ErrRefreshTransient so callers can retry later.
//
// # Manual reset
//
// Deleting the credential file (offmind-mcp logout) is the supported way to
// force re-authentication.
package auth
