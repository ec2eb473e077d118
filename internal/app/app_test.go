package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/system"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	return &config.Paths{
		FixturesDir:   filepath.Join(dir, "fixtures"),
		StateDir:      filepath.Join(dir, "state"),
		NamespacesDir: filepath.Join(dir, "state", "namespaces"),
		EventsDir:     filepath.Join(dir, "state", "events"),
	}
}

func TestNew_DetectsSQLite(t *testing.T) {
	paths := testPaths(t)

	app := New(WithPaths(paths))

	if app.Config == nil {
		t.Fatal("Config should default")
	}
	if app.Backend == nil {
		t.Fatalf("Backend should be detected: %v", app.BackendErr)
	}
	if app.Backend.Name() != "sqlite" {
		t.Errorf("Backend.Name() = %q, want sqlite", app.Backend.Name())
	}
	if app.Audit == nil || app.Audit.Dir() != paths.EventsDir {
		t.Error("Audit should be rooted at the events dir")
	}
	if app.Validator == nil {
		t.Error("Validator should not be nil")
	}
}

func TestNew_WithBackend(t *testing.T) {
	mock := namespace.NewMockBackend()

	app := New(WithPaths(testPaths(t)), WithBackend(mock))

	if app.Backend != mock {
		t.Error("WithBackend did not set backend")
	}
}

func TestNew_CommandBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Type = config.BackendCommand
	cfg.Backend.Command = config.CommandConfig{
		Exists:  "dbctl exists {namespace}",
		Backup:  "dbctl backup {namespace} {snapshot}",
		Restore: "dbctl restore {namespace} {snapshot}",
		Drop:    "dbctl drop {namespace}",
		Tables:  "dbctl tables {namespace}",
	}
	exec := system.NewMockExecutor()

	app := New(WithConfig(cfg), WithPaths(testPaths(t)), WithExecutor(exec))
	if app.Backend == nil || app.Backend.Name() != "command" {
		t.Fatalf("Backend = %v, err = %v", app.Backend, app.BackendErr)
	}

	if _, err := app.Backend.Exists(context.Background(), "NS"); err != nil {
		t.Fatal(err)
	}
	if cmd, ok := exec.LastCommand(); !ok || cmd.Line() != "dbctl exists NS" {
		t.Errorf("command = %+v", cmd)
	}
}

func TestNew_BackendUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Type = config.BackendCommand

	app := New(WithConfig(cfg), WithPaths(testPaths(t)))

	if app.Backend != nil {
		t.Fatal("Backend should be nil")
	}
	_, err := app.RequireBackend()
	if !errors.Is(err, fixerrors.ErrConfig) {
		t.Errorf("RequireBackend() error = %v, want ErrConfig", err)
	}
	if _, err := app.Loader(); err == nil {
		t.Error("Loader() should fail without a backend")
	}
	if _, err := app.Creator(); err == nil {
		t.Error("Creator() should fail without a backend")
	}
}

func TestBackendConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Command.Count = "dbctl count {namespace} {table}"
	paths := &config.Paths{NamespacesDir: "/ns"}

	got := BackendConfig(cfg, paths)
	if got.Type != namespace.TypeAuto {
		t.Errorf("Type = %q", got.Type)
	}
	if got.SQLite.DataDir != "/ns" {
		t.Errorf("DataDir = %q", got.SQLite.DataDir)
	}
	if got.Command.Count != cfg.Backend.Command.Count {
		t.Errorf("Count = %q", got.Command.Count)
	}
}

func TestLoader_RecordsRollback(t *testing.T) {
	ctx := context.Background()
	mock := namespace.NewMockBackend()
	mock.AddNamespace("SRC", map[string]int64{"t": 5})
	app := New(WithPaths(testPaths(t)), WithBackend(mock))

	creator, err := app.Creator()
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(app.Paths.FixturesDir, "fx")
	if _, err := creator.Create(ctx, fixture.CreateOptions{FixtureID: "fx", Namespace: "SRC", OutputDir: dir}); err != nil {
		t.Fatal(err)
	}

	mock.SetError("Mount", errors.New("restore failed"))
	loader, err := app.Loader()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(ctx, fixture.LoadOptions{FixtureDir: dir, TargetNamespace: "DST"}); err == nil {
		t.Fatal("Load() should fail")
	}

	events, err := app.Audit.Events("fx")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != audit.EventRollback || events[0].Namespace != "DST" {
		t.Fatalf("events = %+v", events)
	}
	if !strings.Contains(events[0].Details, "restore failed") {
		t.Errorf("details = %q", events[0].Details)
	}
}

func TestRecord(t *testing.T) {
	app := New(WithPaths(testPaths(t)), WithBackend(namespace.NewMockBackend()))

	app.Record(audit.EventValidate, "fx", "", "valid")
	app.Record(audit.EventValidate, "", "", "ignored")
	app.Record(audit.EventValidate, "../bad", "", "logged, not returned")

	events, err := app.Audit.Events("fx")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

func TestSetDefault(t *testing.T) {
	// Save original default
	original := Default
	defer func() { Default = original }()

	customApp := New(WithPaths(testPaths(t)), WithBackend(namespace.NewMockBackend()))
	SetDefault(customApp)

	if Default != customApp {
		t.Error("SetDefault did not update Default")
	}

	ResetDefault()
	if Default != nil {
		t.Error("ResetDefault should clear Default")
	}
}
