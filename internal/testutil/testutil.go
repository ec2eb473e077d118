// Package testutil provides test utilities for command and integration tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
)

// TestEnv holds the test environment
type TestEnv struct {
	T       *testing.T
	TmpDir  string
	Paths   *config.Paths
	Config  *config.Config
	Backend *namespace.MockBackend
	App     *app.App
	cleanup func()
}

// NewTestEnv creates a new test environment with a mock backend and installs
// its App as app.Default until Cleanup is called.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	paths := &config.Paths{
		FixturesDir:   filepath.Join(tmpDir, "fixtures"),
		StateDir:      filepath.Join(tmpDir, "state"),
		NamespacesDir: filepath.Join(tmpDir, "state", "namespaces"),
		EventsDir:     filepath.Join(tmpDir, "state", "events"),
	}

	// Create directories
	for _, dir := range []string{
		paths.FixturesDir,
		paths.StateDir,
		paths.NamespacesDir,
		paths.EventsDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	cfg := config.Default()
	cfg.FixturesDir = paths.FixturesDir
	cfg.StateDir = paths.StateDir

	mockBackend := namespace.NewMockBackend()

	testApp := app.New(
		app.WithConfig(cfg),
		app.WithPaths(paths),
		app.WithBackend(mockBackend),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)

	env := &TestEnv{
		T:       t,
		TmpDir:  tmpDir,
		Paths:   paths,
		Config:  cfg,
		Backend: mockBackend,
		App:     testApp,
		cleanup: func() {
			app.SetDefault(originalDefault)
		},
	}

	return env
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// AddNamespace adds a populated namespace to the mock backend
func (e *TestEnv) AddNamespace(name string, tables map[string]int64) {
	e.Backend.AddNamespace(name, tables)
}

// CreateFixture exports ns into <FixturesDir>/<id> and returns the fixture
// directory. The namespace must have been added first.
func (e *TestEnv) CreateFixture(id, ns string) string {
	e.T.Helper()

	dir := filepath.Join(e.Paths.FixturesDir, id)
	_, err := fixture.NewCreator(e.Backend).Create(context.Background(), fixture.CreateOptions{
		FixtureID: id,
		Namespace: ns,
		OutputDir: dir,
	})
	if err != nil {
		e.T.Fatalf("Failed to create fixture %s: %v", id, err)
	}
	return dir
}

// CorruptSnapshot appends garbage to a fixture's snapshot so its checksum
// no longer matches.
func (e *TestEnv) CorruptSnapshot(dir string) {
	e.T.Helper()

	m, err := manifest.Read(dir)
	if err != nil {
		e.T.Fatalf("Failed to read manifest: %v", err)
	}
	path, err := manifest.SnapshotPath(dir, m)
	if err != nil {
		e.T.Fatalf("Failed to resolve snapshot: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		e.T.Fatalf("Failed to open snapshot: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("tampered"); err != nil {
		e.T.Fatalf("Failed to corrupt snapshot: %v", err)
	}
}

// WriteRawManifest writes data as the manifest of a new fixture directory
// and returns the directory.
func (e *TestEnv) WriteRawManifest(id string, data []byte) string {
	e.T.Helper()

	dir := filepath.Join(e.Paths.FixturesDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.T.Fatalf("Failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(manifest.Path(dir), data, 0644); err != nil {
		e.T.Fatalf("Failed to write manifest: %v", err)
	}
	return dir
}
