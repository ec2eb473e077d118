package namespace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	_ "modernc.org/sqlite"

	"github.com/firefly-engineering/fixture-ctl/internal/logging"
)

const sqliteDriver = "sqlite"

// SQLiteBackend implements Backend with one SQLite database file per
// namespace under DataDir.
type SQLiteBackend struct {
	// DataDir holds <namespace>.db files
	DataDir string
}

// NewSQLiteBackend creates a backend rooted at dataDir, creating the
// directory if needed.
func NewSQLiteBackend(dataDir string) (*SQLiteBackend, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("sqlite data directory is empty")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite data directory: %w", err)
	}
	return &SQLiteBackend{DataDir: dataDir}, nil
}

// Name returns the backend identifier
func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

// Path returns the database file for namespace.
func (b *SQLiteBackend) Path(namespace string) (string, error) {
	if namespace == "" || strings.ContainsAny(namespace, `/\`) || strings.HasPrefix(namespace, ".") {
		return "", fmt.Errorf("invalid namespace name %q", namespace)
	}
	return securejoin.SecureJoin(b.DataDir, namespace+".db")
}

func (b *SQLiteBackend) open(namespace string) (*sql.DB, error) {
	path, err := b.Path(namespace)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDriver, path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// openExisting opens namespace, returning ErrNotFound when it is absent.
func (b *SQLiteBackend) openExisting(ctx context.Context, namespace string) (*sql.DB, error) {
	exists, err := b.Exists(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}
	return b.open(namespace)
}

// Exists reports whether the namespace database file is present.
func (b *SQLiteBackend) Exists(ctx context.Context, namespace string) (bool, error) {
	path, err := b.Path(namespace)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Create makes an empty namespace database.
func (b *SQLiteBackend) Create(ctx context.Context, namespace string) error {
	exists, err := b.Exists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("namespace %s already exists", namespace)
	}

	logging.Debug("creating sqlite namespace", "namespace", namespace, "dir", b.DataDir)

	db, err := b.open(namespace)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA user_version = 0"); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
	}
	return nil
}

// Exec runs a statement against namespace. It is used to seed data.
func (b *SQLiteBackend) Exec(ctx context.Context, namespace, query string, args ...any) error {
	db, err := b.openExisting(ctx, namespace)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec in %s failed: %w", namespace, err)
	}
	return nil
}

// Backup writes a compacted copy of namespace to snapshotPath.
func (b *SQLiteBackend) Backup(ctx context.Context, namespace, snapshotPath string) error {
	db, err := b.openExisting(ctx, namespace)
	if err != nil {
		return err
	}
	defer db.Close()

	logging.Debug("backing up sqlite namespace", "namespace", namespace, "snapshot", snapshotPath)

	stmt := "VACUUM INTO " + quoteLiteral(snapshotPath)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("backup of %s failed: %w", namespace, err)
	}
	return nil
}

// Tables lists user tables in name order.
func (b *SQLiteBackend) Tables(ctx context.Context, namespace string) ([]string, error) {
	db, err := b.openExisting(ctx, namespace)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", namespace, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// CountRows returns SELECT COUNT(*) for namespace.table.
func (b *SQLiteBackend) CountRows(ctx context.Context, namespace, table string) (int64, error) {
	db, err := b.openExisting(ctx, namespace)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s.%s: %w", namespace, table, err)
	}
	return n, nil
}

// EngineVersion returns the SQLite library version.
func (b *SQLiteBackend) EngineVersion(ctx context.Context) (string, error) {
	db, err := sql.Open(sqliteDriver, ":memory:")
	if err != nil {
		return "", err
	}
	defer db.Close()

	var v string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", fmt.Errorf("failed to query sqlite version: %w", err)
	}
	return "sqlite " + v, nil
}

// Mount copies the snapshot into a temp file beside the target and renames
// it into place, so the namespace appears complete or not at all.
func (b *SQLiteBackend) Mount(ctx context.Context, namespace, snapshotPath string) error {
	target, err := b.Path(namespace)
	if err != nil {
		return err
	}
	exists, err := b.Exists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("namespace %s already exists", namespace)
	}

	logging.Debug("mounting sqlite namespace", "namespace", namespace, "snapshot", snapshotPath)

	tmp, err := copyToTemp(ctx, snapshotPath, b.DataDir)
	if err != nil {
		return fmt.Errorf("mount of %s failed: %w", namespace, err)
	}

	if err := checkDatabase(ctx, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("mount of %s failed: %w", namespace, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("mount of %s failed: %w", namespace, err)
	}
	return nil
}

// Unmount drops every user table and view but keeps the database file.
func (b *SQLiteBackend) Unmount(ctx context.Context, namespace string) error {
	db, err := b.openExisting(ctx, namespace)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		"SELECT type, name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("failed to list objects in %s: %w", namespace, err)
	}
	var stmts []string
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			rows.Close()
			return err
		}
		stmts = append(stmts, fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(kind), quoteIdent(name)))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("unmount of %s failed: %w", namespace, err)
		}
	}
	return tx.Commit()
}

// Drop deletes the namespace database and its sidecar files.
func (b *SQLiteBackend) Drop(ctx context.Context, namespace string) error {
	path, err := b.Path(namespace)
	if err != nil {
		return err
	}
	exists, err := b.Exists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}

	logging.Debug("dropping sqlite namespace", "namespace", namespace)

	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func copyToTemp(ctx context.Context, src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".mount-*.db")
	if err != nil {
		return "", err
	}
	name := out.Name()

	if _, err := io.Copy(out, readerWithContext(ctx, in)); err != nil {
		out.Close()
		os.Remove(name)
		return "", err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(name)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func checkDatabase(ctx context.Context, path string) error {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("snapshot is not a readable sqlite database: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("snapshot failed integrity check: %s", result)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ Backend = (*SQLiteBackend)(nil)
