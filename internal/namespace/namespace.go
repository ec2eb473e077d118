// Package namespace defines the database collaborators the fixture engine
// depends on. This abstraction allows for multiple backend implementations
// (embedded SQLite, external tools) and enables testing through mocking.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an operation targets a namespace that does
// not exist.
var ErrNotFound = errors.New("namespace not found")

// Connection runs privileged backup operations and metadata queries
// against a namespace. Implementations must not modify data in these calls.
type Connection interface {
	// Backup writes a snapshot of namespace to snapshotPath.
	Backup(ctx context.Context, namespace, snapshotPath string) error

	// Tables lists the user tables in namespace.
	Tables(ctx context.Context, namespace string) ([]string, error)

	// CountRows returns the number of rows in namespace.table.
	CountRows(ctx context.Context, namespace, table string) (int64, error)

	// EngineVersion reports the database engine version.
	EngineVersion(ctx context.Context) (string, error)
}

// Manager creates, mounts and removes namespaces.
type Manager interface {
	// Exists reports whether namespace is present.
	Exists(ctx context.Context, namespace string) (bool, error)

	// Create makes an empty namespace.
	Create(ctx context.Context, namespace string) error

	// Mount restores the snapshot at snapshotPath into namespace.
	Mount(ctx context.Context, namespace, snapshotPath string) error

	// Unmount removes all data from namespace but keeps it.
	Unmount(ctx context.Context, namespace string) error

	// Drop removes namespace entirely.
	Drop(ctx context.Context, namespace string) error
}

// Backend is a Connection and Manager for one database engine.
// All methods should be safe for concurrent use on distinct namespaces.
type Backend interface {
	// Name returns the backend identifier (e.g., "sqlite", "command")
	Name() string

	Connection
	Manager
}

// CheckTableName rejects table names that cannot be passed as a single
// argument to a command template or read back from line-oriented output.
func CheckTableName(table string) error {
	if table == "" || strings.ContainsAny(table, "\x00\r\n") {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}
