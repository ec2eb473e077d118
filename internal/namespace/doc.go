// Package namespace provides the database collaborators used by the
// fixture engine.
//
// Supported backends:
//   - sqlite: one SQLite database file per namespace (modernc.org/sqlite)
//   - command: external tools configured as shell-quoted templates
//
// Backend selection is made once at start-up with Detect, which only looks
// at configuration. New builds the detected backend; callers receive it
// explicitly and there is no package-level instance.
//
// # Backend Interface
//
// Backend combines two capabilities:
//   - Connection: Backup, Tables, CountRows, EngineVersion (read-only)
//   - Manager: Exists, Create, Mount, Unmount, Drop
//
// # Command Templates
//
// CommandBackend splits each template with shell quoting rules and then
// substitutes {namespace}, {snapshot} and {table} in every argument:
//
//	backup  = "iris-backup --namespace {namespace} --out {snapshot}"
//	tables  = "iris-tables {namespace}"   # prints "<table>\t<rows>" lines
//
// # Mock Backend
//
// For testing, use NewMockBackend() to create an in-memory implementation
// that records every call and can be configured to fail specific
// operations.
package namespace
