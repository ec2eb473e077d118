// Package integration provides a test harness for integration tests
// that run against a real namespace backend.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
)

const (
	// EnableEnvVar turns integration tests on.
	EnableEnvVar = "FIXTURE_INTEGRATION_TESTS"

	// SourceEnvVar names an existing, populated namespace to capture.
	// Without it the harness seeds one, which only the SQLite backend
	// supports.
	SourceEnvVar = "FIXTURE_INTEGRATION_NAMESPACE"

	seededNamespace = "IT_SOURCE"
)

// SeedTables are the tables and row counts of the seeded source namespace.
var SeedTables = map[string]int64{
	"patients": 25,
	"visits":   60,
	"audit":    0,
}

// TestHarness provides utilities for integration testing with a real backend.
type TestHarness struct {
	t          *testing.T
	tempDir    string
	cfg        *config.Config
	paths      *config.Paths
	backend    namespace.Backend
	namespaces []string // Track created namespaces for cleanup
}

// NewHarness creates a new test harness.
// It will skip the test if FIXTURE_INTEGRATION_TESTS is not set.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if os.Getenv(EnableEnvVar) == "" {
		t.Skip("integration tests disabled (set " + EnableEnvVar + "=1 to enable)")
	}

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}

	tempDir := t.TempDir()
	paths := &config.Paths{
		FixturesDir:   filepath.Join(tempDir, "fixtures"),
		StateDir:      filepath.Join(tempDir, "state"),
		NamespacesDir: filepath.Join(tempDir, "state", "namespaces"),
		EventsDir:     filepath.Join(tempDir, "state", "events"),
	}

	// Create directories
	for _, dir := range []string{paths.FixturesDir, paths.NamespacesDir, paths.EventsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	backend, err := namespace.New(app.BackendConfig(cfg, paths), nil)
	if err != nil {
		t.Skipf("no namespace backend available: %v", err)
	}

	h := &TestHarness{
		t:       t,
		tempDir: tempDir,
		cfg:     cfg,
		paths:   paths,
		backend: backend,
	}

	t.Cleanup(h.Cleanup)

	return h
}

// Paths returns the test paths.
func (h *TestHarness) Paths() *config.Paths {
	return h.paths
}

// Backend returns the namespace backend.
func (h *TestHarness) Backend() namespace.Backend {
	return h.backend
}

// Creator returns a Creator bound to the harness backend.
func (h *TestHarness) Creator() *fixture.Creator {
	return fixture.NewCreator(h.backend)
}

// Loader returns a Loader bound to the harness backend.
func (h *TestHarness) Loader() *fixture.Loader {
	return fixture.NewLoader(h.backend)
}

// FixtureDir returns a fresh directory path for a fixture.
func (h *TestHarness) FixtureDir(id string) string {
	return filepath.Join(h.paths.FixturesDir, id)
}

// SourceNamespace returns the namespace to capture fixtures from. It is
// taken from FIXTURE_INTEGRATION_NAMESPACE or seeded on SQLite.
func (h *TestHarness) SourceNamespace() string {
	h.t.Helper()

	if ns := os.Getenv(SourceEnvVar); ns != "" {
		return ns
	}

	sqlite, ok := h.backend.(*namespace.SQLiteBackend)
	if !ok {
		h.t.Skipf("set %s to a populated namespace for the %s backend", SourceEnvVar, h.backend.Name())
	}

	ctx := context.Background()
	if err := sqlite.Create(ctx, seededNamespace); err != nil {
		h.t.Fatalf("Failed to create source namespace: %v", err)
	}
	h.TrackNamespace(seededNamespace)

	for table, rows := range SeedTables {
		if err := sqlite.Exec(ctx, seededNamespace, "CREATE TABLE "+table+" (id INTEGER PRIMARY KEY, label TEXT)"); err != nil {
			h.t.Fatalf("Failed to create table %s: %v", table, err)
		}
		for i := int64(0); i < rows; i++ {
			if err := sqlite.Exec(ctx, seededNamespace, "INSERT INTO "+table+" (label) VALUES (?)", table); err != nil {
				h.t.Fatalf("Failed to seed %s: %v", table, err)
			}
		}
	}
	return seededNamespace
}

// TrackNamespace registers a namespace for cleanup.
func (h *TestHarness) TrackNamespace(ns string) {
	h.namespaces = append(h.namespaces, ns)
}

// Cleanup drops all tracked namespaces.
func (h *TestHarness) Cleanup() {
	ctx := context.Background()
	for _, ns := range h.namespaces {
		exists, err := h.backend.Exists(ctx, ns)
		if err != nil || !exists {
			continue
		}
		if err := h.backend.Drop(ctx, ns); err != nil {
			h.t.Logf("Warning: failed to drop namespace %s: %v", ns, err)
		}
	}
	h.namespaces = nil
}

// RequireNamespace fails the test unless ns exists.
func (h *TestHarness) RequireNamespace(ns string) {
	h.t.Helper()

	exists, err := h.backend.Exists(context.Background(), ns)
	if err != nil {
		h.t.Fatalf("Failed to check namespace %s: %v", ns, err)
	}
	if !exists {
		h.t.Fatalf("Namespace %s does not exist", ns)
	}
}
