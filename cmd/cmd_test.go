package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/testutil"
)

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between test runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns everything written
// to user output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	logging.SetUserOutput(&buf, &buf)
	t.Cleanup(func() {
		logging.SetUserOutput(nil, nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func newEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()
	env := testutil.NewTestEnv(t)
	t.Cleanup(env.Cleanup)
	env.AddNamespace("CLINIC", map[string]int64{"patients": 100, "visits": 250})
	return env
}

func assertExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected exit code %d, got success", want)
	}
	if got := fixerrors.GetExitCode(err); got != want {
		t.Errorf("exit code = %d, want %d (error: %v)", got, want, err)
	}
}

func TestCreateLoadCleanup(t *testing.T) {
	env := newEnv(t)

	out, err := execute(t, "create", "CLINIC", "patients", "--description", "100 patients")
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created fixture patients from CLINIC (2 tables, 350 rows") {
		t.Errorf("unexpected create output:\n%s", out)
	}
	dir := filepath.Join(env.Paths.FixturesDir, "patients")
	m, err := manifest.Read(dir)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if m.Description != "100 patients" {
		t.Errorf("Description = %q", m.Description)
	}

	out, err = execute(t, "load", "patients", "--namespace", "TEST_1")
	if err != nil {
		t.Fatalf("load failed: %v\n%s", err, out)
	}
	if !env.Backend.HasNamespace("TEST_1") {
		t.Fatal("TEST_1 should be loaded")
	}
	if !strings.Contains(out, "Loaded fixture patients into TEST_1") {
		t.Errorf("unexpected load output:\n%s", out)
	}

	if out, err := execute(t, "cleanup", "TEST_1", "--delete", "--fixture", "patients"); err != nil {
		t.Fatalf("cleanup failed: %v\n%s", err, out)
	}
	if env.Backend.HasNamespace("TEST_1") {
		t.Error("TEST_1 should be dropped")
	}

	out, err = execute(t, "events", "patients")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"create", "load", "cleanup", "patients -> TEST_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("events output should contain %q:\n%s", want, out)
		}
	}
}

func TestCreate_ExplicitOptions(t *testing.T) {
	env := newEnv(t)
	dir := filepath.Join(env.TmpDir, "elsewhere", "clinic")

	_, err := execute(t, "create", "CLINIC", dir,
		"--id", "clinic-small",
		"--version", "2.0.0",
		"--snapshot-file", "clinic.bak",
		"--feature", "anonymized=true",
		"--feature", "locale=en_US",
	)
	if err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.FixtureID != "clinic-small" || m.Version != "2.0.0" || m.SnapshotFile != "clinic.bak" {
		t.Errorf("manifest = %+v", m)
	}
	if m.Features["anonymized"] != true || m.Features["locale"] != "en_US" {
		t.Errorf("Features = %v", m.Features)
	}
	if _, err := os.Stat(filepath.Join(dir, "clinic.bak")); err != nil {
		t.Errorf("snapshot missing: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("existing", "CLINIC")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing namespace", []string{"create", "NOPE", "nope"}, fixerrors.ExitNamespaceNotFound},
		{"existing output", []string{"create", "CLINIC", "existing"}, fixerrors.ExitFixtureExists},
		{"bad feature", []string{"create", "CLINIC", "new", "--feature", "novalue"}, fixerrors.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assertExitCode(t, err, tt.code)
		})
	}
}

func TestValidate(t *testing.T) {
	env := newEnv(t)
	good := env.CreateFixture("good", "CLINIC")
	bad := env.CreateFixture("bad", "CLINIC")
	env.CorruptSnapshot(bad)

	out, err := execute(t, "validate", good, "--no-color")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ VALID") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "validate", "bad", "--no-color")
	assertExitCode(t, err, fixerrors.ExitChecksumMismatch)
	if !strings.Contains(out, "✗ INVALID") || !strings.Contains(out, "[checksum_mismatch]") {
		t.Errorf("unexpected output:\n%s", out)
	}

	_, err = execute(t, "validate", filepath.Join(env.TmpDir, "missing"))
	assertExitCode(t, err, fixerrors.ExitManifestNotFound)

	events, err := env.App.Audit.Events("bad")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events for bad, want checksum and validate", len(events))
	}
}

func TestValidate_InvalidManifest(t *testing.T) {
	env := newEnv(t)
	data, err := testutil.InvalidManifestData()
	if err != nil {
		t.Fatal(err)
	}
	dir := env.WriteRawManifest("broken", data)

	out, err := execute(t, "validate", dir, "--no-color")
	assertExitCode(t, err, fixerrors.ExitValidationFailed)
	if !strings.Contains(out, "missing required field: checksum") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLoad_Collision(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("patients", "CLINIC")

	_, err := execute(t, "load", "patients")
	assertExitCode(t, err, fixerrors.ExitNamespaceCollision)
	if len(env.Backend.GetCallsFor("Mount")) != 0 {
		t.Error("Mount should not be called on collision")
	}

	if _, err := execute(t, "load", "patients", "--overwrite"); err != nil {
		t.Fatalf("overwrite load failed: %v", err)
	}
}

func TestLoad_RowCountTolerance(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("patients", "CLINIC")
	env.Backend.AfterMount = func(ns string, tables map[string]int64) {
		tables["patients"] = 98
	}

	_, err := execute(t, "load", "patients", "-n", "TEST_1")
	assertExitCode(t, err, fixerrors.ExitLoadFailed)
	if env.Backend.HasNamespace("TEST_1") {
		t.Error("failed load should roll back")
	}

	out, err := execute(t, "load", "patients", "-n", "TEST_1", "--tolerance", "0.05")
	if err != nil {
		t.Fatalf("load within tolerance failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "within tolerance") {
		t.Errorf("expected a drift warning:\n%s", out)
	}

	events, _ := env.App.Audit.Events("patients")
	var types []string
	for _, e := range events {
		types = append(types, string(e.Type))
	}
	if !strings.Contains(strings.Join(types, ","), "rollback") {
		t.Errorf("events = %v, want a rollback", types)
	}
}

func TestLoad_SkipRowCounts(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("patients", "CLINIC")
	env.Backend.AfterMount = func(ns string, tables map[string]int64) {
		tables["patients"] = 1
	}

	out, err := execute(t, "load", "patients", "-n", "TEST_2", "--skip-row-counts")
	if err != nil {
		t.Fatalf("load failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "row count check skipped") {
		t.Errorf("expected a skipped-check warning:\n%s", out)
	}
}

func TestLoad_AfterDefaultCleanup(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("patients", "CLINIC")

	for i := 0; i < 2; i++ {
		if out, err := execute(t, "load", "patients", "-n", "TEST_3"); err != nil {
			t.Fatalf("load #%d failed: %v\n%s", i+1, err, out)
		}
		if out, err := execute(t, "cleanup", "TEST_3"); err != nil {
			t.Fatalf("cleanup #%d failed: %v\n%s", i+1, err, out)
		}
	}
	if !env.Backend.HasNamespace("TEST_3") {
		t.Error("default cleanup should keep the namespace")
	}
}

func TestCleanup_MissingNamespace(t *testing.T) {
	newEnv(t)

	if _, err := execute(t, "cleanup", "NEVER_LOADED"); err != nil {
		t.Errorf("cleanup of a missing namespace should succeed: %v", err)
	}
}

func TestChecksum(t *testing.T) {
	env := newEnv(t)
	dir := env.CreateFixture("patients", "CLINIC")

	out, err := execute(t, "checksum", dir)
	if err != nil {
		t.Fatalf("checksum of an intact fixture failed: %v", err)
	}
	if !strings.Contains(out, "Checksums match") {
		t.Errorf("unexpected output:\n%s", out)
	}

	env.CorruptSnapshot(dir)
	out, err = execute(t, "checksum", dir)
	assertExitCode(t, err, fixerrors.ExitChecksumMismatch)
	if !strings.Contains(out, "snapshot: sha256:") {
		t.Errorf("computed checksum should still be printed:\n%s", out)
	}

	if _, err := execute(t, "checksum", dir, "--write"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(manifest.ArchivePath(dir)); err != nil {
		t.Error("previous manifest should be archived")
	}
	if _, err := execute(t, "validate", dir, "--no-color"); err != nil {
		t.Errorf("fixture should validate after --write: %v", err)
	}

	_, err = execute(t, "checksum", filepath.Join(env.TmpDir, "missing"))
	assertExitCode(t, err, fixerrors.ExitManifestNotFound)
}

func TestRefresh(t *testing.T) {
	env := newEnv(t)
	dir := env.CreateFixture("patients", "CLINIC")
	env.AddNamespace("CLINIC", map[string]int64{"patients": 120, "visits": 300, "labs": 7})

	if out, err := execute(t, "refresh", "patients"); err != nil {
		t.Fatalf("refresh failed: %v\n%s", err, out)
	}

	m, err := manifest.Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.FixtureID != "patients" || m.TotalRows() != 427 || len(m.Tables) != 3 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestList(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("alpha", "CLINIC")
	bad := env.CreateFixture("beta", "CLINIC")
	env.CorruptSnapshot(bad)

	out, err := execute(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"alpha", "beta", "checksum mismatch"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output should contain %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "list", filepath.Join(env.TmpDir, "empty"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No fixtures found") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEvents_Empty(t *testing.T) {
	newEnv(t)

	out, err := execute(t, "events", "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No events found") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseFeatures(t *testing.T) {
	got, err := parseFeatures([]string{"anonymized=true", "seed=42", "ratio=0.5", "locale=en_US", "flag=1", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"anonymized": true,
		"seed":       int64(42),
		"ratio":      0.5,
		"locale":     "en_US",
		"flag":       int64(1),
		"empty":      "",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("features[%q] = %#v, want %#v", k, got[k], v)
		}
	}

	for _, bad := range []string{"novalue", "=x", " =x"} {
		if _, err := parseFeatures([]string{bad}); err == nil {
			t.Errorf("parseFeatures(%q) should fail", bad)
		}
	}

	if got, _ := parseFeatures(nil); got != nil {
		t.Errorf("parseFeatures(nil) = %v, want nil", got)
	}
}

func TestDoctor(t *testing.T) {
	env := newEnv(t)
	env.CreateFixture("patients", "CLINIC")

	out, err := execute(t, "doctor")
	if err != nil {
		t.Fatalf("doctor failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Backend:  mock (mock 1.0)", "Fixtures: 1", "Status:   healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output should contain %q:\n%s", want, out)
		}
	}

	env.Backend.SetError("EngineVersion", errors.New("connection refused"))
	out, err = execute(t, "doctor")
	assertExitCode(t, err, fixerrors.ExitConfigError)
	if !strings.Contains(out, "Status:   unavailable") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
