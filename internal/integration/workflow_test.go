package integration

import (
	"context"
	"errors"
	"os"
	"testing"

	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

func TestWorkflow_CreateValidateLoadCleanup(t *testing.T) {
	h := NewHarness(t)
	ctx := context.Background()
	src := h.SourceNamespace()
	dir := h.FixtureDir("it-roundtrip")

	created, err := h.Creator().Create(ctx, fixture.CreateOptions{
		FixtureID: "it-roundtrip",
		Namespace: src,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if r := validator.New().ValidateFixture(dir); !r.Valid {
		t.Fatalf("created fixture is invalid: %v", r.Errors)
	}

	const target = "IT_TARGET"
	h.TrackNamespace(target)
	loader := h.Loader()

	res, err := loader.Load(ctx, fixture.LoadOptions{FixtureDir: dir, TargetNamespace: target})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	h.RequireNamespace(target)
	if len(res.TablesLoaded) != len(created.Manifest.Tables) {
		t.Errorf("TablesLoaded = %v, manifest has %v", res.TablesLoaded, created.Manifest.TableNames())
	}

	for _, tbl := range created.Manifest.Tables {
		n, err := h.Backend().CountRows(ctx, target, tbl.Name)
		if err != nil {
			t.Fatalf("CountRows(%s) error: %v", tbl.Name, err)
		}
		if n != tbl.RowCount {
			t.Errorf("%s has %d rows, want %d", tbl.Name, n, tbl.RowCount)
		}
	}

	if err := loader.Cleanup(ctx, target, true); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if exists, _ := h.Backend().Exists(ctx, target); exists {
		t.Error("target namespace should be dropped")
	}

	// Loading again after cleanup works
	if _, err := loader.Load(ctx, fixture.LoadOptions{FixtureDir: dir, TargetNamespace: target}); err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
}

func TestWorkflow_TamperedSnapshotRefused(t *testing.T) {
	h := NewHarness(t)
	ctx := context.Background()
	src := h.SourceNamespace()
	dir := h.FixtureDir("it-tampered")

	res, err := h.Creator().Create(ctx, fixture.CreateOptions{
		FixtureID: "it-tampered",
		Namespace: src,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	f, err := os.OpenFile(res.SnapshotPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("x")
	f.Close()

	const target = "IT_TAMPERED"
	h.TrackNamespace(target)
	_, err = h.Loader().Load(ctx, fixture.LoadOptions{FixtureDir: dir, TargetNamespace: target})
	if !errors.Is(err, fixerrors.ErrChecksumMismatch) {
		t.Fatalf("Load() error = %v, want checksum mismatch", err)
	}
	if exists, _ := h.Backend().Exists(ctx, target); exists {
		t.Error("no namespace should be created for a tampered fixture")
	}
}

func TestWorkflow_Refresh(t *testing.T) {
	h := NewHarness(t)
	ctx := context.Background()
	src := h.SourceNamespace()
	dir := h.FixtureDir("it-refresh")

	if _, err := h.Creator().Create(ctx, fixture.CreateOptions{FixtureID: "it-refresh", Namespace: src, OutputDir: dir}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	res, err := h.Creator().Refresh(ctx, fixture.RefreshOptions{FixtureDir: dir})
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if res.Manifest.FixtureID != "it-refresh" {
		t.Errorf("FixtureID = %q", res.Manifest.FixtureID)
	}
	if _, err := os.Stat(manifest.ArchivePath(dir)); err != nil {
		t.Error("previous manifest should be archived")
	}
	if r := validator.New().ValidateFixture(dir); !r.Valid {
		t.Errorf("refreshed fixture is invalid: %v", r.Errors)
	}
}
