package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/fixture-ctl/internal/config"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// Creator exports namespaces into fixture directories.
type Creator struct {
	backend   namespace.Backend
	validator *validator.Validator
	now       func() time.Time
}

// NewCreator returns a Creator that exports through backend.
func NewCreator(backend namespace.Backend, opts ...Option) *Creator {
	o := newOptions(opts)
	return &Creator{
		backend:   backend,
		validator: o.validator,
		now:       o.now,
	}
}

// CreateOptions describes a new fixture.
type CreateOptions struct {
	FixtureID string
	Namespace string
	OutputDir string

	// SnapshotFile is relative to OutputDir. Defaults to snapshot.dat.
	SnapshotFile string

	Description  string
	Version      string
	Features     map[string]any
	KnownQueries []manifest.KnownQuery
}

// CreateResult is returned by Create and Refresh.
type CreateResult struct {
	Manifest       *manifest.Manifest
	FixtureDir     string
	SnapshotPath   string
	Warnings       []string
	ElapsedSeconds float64
}

func (o *CreateOptions) setDefaults() {
	if o.SnapshotFile == "" {
		o.SnapshotFile = manifest.DefaultSnapshotFile
	}
	if o.Version == "" {
		o.Version = manifest.DefaultVersion
	}
}

func (o *CreateOptions) validate() error {
	if o.OutputDir == "" {
		return fixerrors.InvalidArgument("output directory is required")
	}
	if err := config.ValidateFixtureID(o.FixtureID); err != nil {
		return fixerrors.InvalidArgument(err.Error())
	}
	if err := config.ValidateNamespaceName(o.Namespace); err != nil {
		return fixerrors.InvalidArgument(err.Error())
	}
	if err := manifest.CheckSnapshotFile(o.SnapshotFile); err != nil {
		return fixerrors.InvalidArgument(err.Error())
	}
	return nil
}

// Create exports opts.Namespace into a new fixture at opts.OutputDir.
// Either a complete, checksummed fixture exists afterwards or nothing does.
func (c *Creator) Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	start := c.now()
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	log := logging.ForFixture(opts.FixtureID, opts.Namespace)

	if _, err := os.Stat(opts.OutputDir); err == nil {
		return nil, fixerrors.FixtureExists(opts.OutputDir)
	} else if !os.IsNotExist(err) {
		return nil, fixerrors.CreateFailed("failed to check output directory", err)
	}

	exists, err := c.backend.Exists(ctx, opts.Namespace)
	if err != nil {
		return nil, fixerrors.CreateFailed(fmt.Sprintf("failed to check namespace %s", opts.Namespace), err)
	}
	if !exists {
		return nil, fixerrors.NamespaceNotFound(opts.Namespace)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fixerrors.CreateFailed("failed to create output directory", err)
	}
	success := false
	defer func() {
		if success {
			return
		}
		if err := os.RemoveAll(opts.OutputDir); err != nil {
			log.Warn("failed to remove partial fixture", "dir", opts.OutputDir, "error", err)
		}
	}()

	snapshot, err := manifest.ResolveSnapshot(opts.OutputDir, opts.SnapshotFile)
	if err != nil {
		return nil, fixerrors.CreateFailed("invalid snapshot file", err)
	}
	if err := os.MkdirAll(filepath.Dir(snapshot), 0755); err != nil {
		return nil, fixerrors.CreateFailed("failed to create snapshot directory", err)
	}

	log.Debug("backing up namespace", "snapshot", snapshot, "backend", c.backend.Name())
	if err := c.backend.Backup(ctx, opts.Namespace, snapshot); err != nil {
		return nil, fixerrors.CreateFailed(fmt.Sprintf("backup of namespace %s failed", opts.Namespace), err).
			WithRemediation(
				"Check the backup tool output above",
				"Verify the connection has privileges to back up "+opts.Namespace,
			)
	}
	if err := ctx.Err(); err != nil {
		return nil, fixerrors.CreateFailed("create cancelled", err)
	}
	if info, err := os.Stat(snapshot); err != nil || info.IsDir() {
		return nil, fixerrors.CreateFailed("backup completed but produced no snapshot file", err)
	}

	tables, warnings, err := c.collectTables(ctx, opts.Namespace)
	if err != nil {
		return nil, err
	}

	checksum, err := c.validator.CalculateChecksum(snapshot)
	if err != nil {
		return nil, fixerrors.CreateFailed("failed to checksum snapshot", err)
	}

	m := &manifest.Manifest{
		FixtureID:     opts.FixtureID,
		Version:       opts.Version,
		SchemaVersion: manifest.CurrentSchemaVersion,
		Description:   opts.Description,
		CreatedAt:     c.now().UTC().Format(time.RFC3339),
		EngineVersion: c.engineVersion(ctx),
		Namespace:     opts.Namespace,
		SnapshotFile:  opts.SnapshotFile,
		Checksum:      checksum,
		Tables:        tables,
		Features:      opts.Features,
		KnownQueries:  opts.KnownQueries,
	}

	if err := c.commit(opts.OutputDir, m); err != nil {
		return nil, err
	}
	success = true

	log.Debug("created fixture", "dir", opts.OutputDir, "tables", len(tables), "rows", m.TotalRows())
	return &CreateResult{
		Manifest:       m,
		FixtureDir:     opts.OutputDir,
		SnapshotPath:   snapshot,
		Warnings:       warnings,
		ElapsedSeconds: c.now().Sub(start).Seconds(),
	}, nil
}

// commit writes the manifest and checks that the result validates.
func (c *Creator) commit(dir string, m *manifest.Manifest) error {
	if err := manifest.Write(dir, m); err != nil {
		return fixerrors.CreateFailed("failed to write manifest", err)
	}
	if r := c.validator.ValidateFixture(dir); !r.Valid {
		return fixerrors.CreateFailed("exported fixture failed validation", r.Err())
	}
	return nil
}

// collectTables reads the table list and row counts. Any failure aborts
// the export so no manifest is written with partial metadata.
func (c *Creator) collectTables(ctx context.Context, ns string) ([]manifest.TableInfo, []string, error) {
	names, err := c.backend.Tables(ctx, ns)
	if err != nil {
		return nil, nil, fixerrors.CreateFailed(fmt.Sprintf("failed to list tables in %s", ns), err)
	}

	var warnings []string
	if len(names) == 0 {
		warnings = append(warnings, fmt.Sprintf("namespace %s has no tables; the fixture will be empty", ns))
	}

	tables := make([]manifest.TableInfo, 0, len(names))
	for _, name := range names {
		n, err := c.backend.CountRows(ctx, ns, name)
		if err != nil {
			return nil, nil, fixerrors.CreateFailed(fmt.Sprintf("failed to count rows in %s.%s", ns, name), err)
		}
		tables = append(tables, manifest.TableInfo{Name: name, RowCount: n})
	}
	return tables, warnings, nil
}

func (c *Creator) engineVersion(ctx context.Context) string {
	v, err := c.backend.EngineVersion(ctx)
	if err != nil || v == "" {
		logging.Debug("engine version unavailable", "error", err)
		return "unknown"
	}
	return v
}

// RefreshOptions selects the fixture to refresh.
type RefreshOptions struct {
	FixtureDir string

	// Namespace to export from. Defaults to the manifest's namespace.
	Namespace string
}

// Refresh re-exports an existing fixture from its namespace, keeping its
// identity. The previous manifest is archived first and restored if the
// refresh fails; the previous snapshot stays in place until the new one
// has been checksummed.
//
// The new manifest is written before the new snapshot is renamed into
// place, so a validator running concurrently can briefly see a checksum
// mismatch. Refresh is not meant to run while the fixture is being loaded.
func (c *Creator) Refresh(ctx context.Context, opts RefreshOptions) (*CreateResult, error) {
	start := c.now()
	dir := opts.FixtureDir

	prev, err := manifest.Read(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fixerrors.ManifestNotFound(manifest.Path(dir))
		}
		return nil, fixerrors.ValidationFailed(dir, []string{err.Error()})
	}

	ns := opts.Namespace
	if ns == "" {
		ns = prev.Namespace
	}
	if err := config.ValidateNamespaceName(ns); err != nil {
		return nil, fixerrors.InvalidArgument(err.Error())
	}
	log := logging.ForFixture(prev.FixtureID, ns)

	snapshot, err := manifest.SnapshotPath(dir, prev)
	if err != nil {
		return nil, fixerrors.ValidationFailed(dir, []string{err.Error()})
	}

	exists, err := c.backend.Exists(ctx, ns)
	if err != nil {
		return nil, fixerrors.CreateFailed(fmt.Sprintf("failed to check namespace %s", ns), err)
	}
	if !exists {
		return nil, fixerrors.NamespaceNotFound(ns)
	}

	if err := manifest.Archive(dir); err != nil {
		return nil, fixerrors.CreateFailed("failed to archive manifest", err)
	}

	tmp := filepath.Join(filepath.Dir(snapshot), "."+filepath.Base(snapshot)+"."+uuid.NewString()[:8]+".tmp")
	success := false
	defer func() {
		if success {
			return
		}
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove temporary snapshot", "path", tmp, "error", err)
		}
		if err := manifest.RestoreArchive(dir); err != nil {
			log.Warn("failed to restore archived manifest", "dir", dir, "error", err)
		}
	}()

	log.Debug("refreshing fixture", "dir", dir, "tmp", tmp)
	if err := c.backend.Backup(ctx, ns, tmp); err != nil {
		return nil, fixerrors.CreateFailed(fmt.Sprintf("failed to refresh fixture %s: backup of %s failed", prev.FixtureID, ns), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fixerrors.CreateFailed("refresh cancelled", err)
	}

	tables, warnings, err := c.collectTables(ctx, ns)
	if err != nil {
		return nil, err
	}

	checksum, err := c.validator.CalculateChecksum(tmp)
	if err != nil {
		return nil, fixerrors.CreateFailed("failed to checksum snapshot", err)
	}

	m := prev.Clone()
	m.SchemaVersion = manifest.CurrentSchemaVersion
	m.Namespace = ns
	m.Checksum = checksum
	m.Tables = tables
	m.CreatedAt = c.now().UTC().Format(time.RFC3339)
	m.EngineVersion = c.engineVersion(ctx)

	if err := manifest.Write(dir, m); err != nil {
		return nil, fixerrors.CreateFailed("failed to write manifest", err)
	}
	if err := os.Rename(tmp, snapshot); err != nil {
		return nil, fixerrors.CreateFailed("failed to replace snapshot", err)
	}
	success = true

	log.Debug("refreshed fixture", "dir", dir, "previous", prev.Checksum, "checksum", checksum)
	return &CreateResult{
		Manifest:       m,
		FixtureDir:     dir,
		SnapshotPath:   snapshot,
		Warnings:       warnings,
		ElapsedSeconds: c.now().Sub(start).Seconds(),
	}, nil
}
