package fixturetest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/config"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// recordingTB captures Fatalf and Logf instead of stopping the test.
type recordingTB struct {
	testing.TB
	name     string
	fatals   []string
	logs     []string
	cleanups []func()
}

func (r *recordingTB) Helper()      {}
func (r *recordingTB) Name() string { return r.name }
func (r *recordingTB) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}
func (r *recordingTB) Logf(format string, args ...any) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}
func (r *recordingTB) Cleanup(fn func()) { r.cleanups = append(r.cleanups, fn) }

func (r *recordingTB) runCleanups() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
}

func newFixture(t *testing.T) (*namespace.MockBackend, string) {
	t.Helper()
	mock := namespace.NewMockBackend()
	mock.AddNamespace("SRC", map[string]int64{"patients": 100, "visits": 20})

	dir := filepath.Join(t.TempDir(), "patients")
	_, err := fixture.NewCreator(mock).Create(context.Background(), fixture.CreateOptions{
		FixtureID: "patients",
		Namespace: "SRC",
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	mock.Reset()
	mock.AddNamespace("SRC", map[string]int64{"patients": 100, "visits": 20})
	return mock, dir
}

func TestUniqueNamespace(t *testing.T) {
	t.Setenv(WorkerEnvVar, "gw3")

	tests := []struct {
		name string
		want string
	}{
		{"TestPatients", "FIXTURE_GW3_TESTPATIENTS"},
		{"TestPatients/by_age", "FIXTURE_GW3_TESTPATIENTS_BY_AGE"},
		{"TestPatients/with spaces#01", "FIXTURE_GW3_TESTPATIENTS_WITH_SPACES_01"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := UniqueNamespace(&recordingTB{name: tt.name})
			if got != tt.want {
				t.Errorf("UniqueNamespace(%q) = %q, want %q", tt.name, got, tt.want)
			}
			if err := config.ValidateNamespaceName(got); err != nil {
				t.Errorf("generated name is invalid: %v", err)
			}
		})
	}
}

func TestUniqueNamespace_Truncated(t *testing.T) {
	t.Setenv(WorkerEnvVar, "1")

	got := UniqueNamespace(&recordingTB{name: "Test" + strings.Repeat("Long_", 30)})
	if len(got) > 64 {
		t.Errorf("len = %d, want <= 64", len(got))
	}
	if err := config.ValidateNamespaceName(got); err != nil {
		t.Errorf("generated name is invalid: %v", err)
	}
}

func TestUniqueNamespace_PidFallback(t *testing.T) {
	t.Setenv(WorkerEnvVar, "")

	got := UniqueNamespace(&recordingTB{name: "TestX"})
	if !strings.HasPrefix(got, "FIXTURE_") || !strings.HasSuffix(got, "_TESTX") {
		t.Errorf("UniqueNamespace() = %q", got)
	}
}

func TestLoad_CleansUpAfterTest(t *testing.T) {
	mock, dir := newFixture(t)
	t.Setenv(WorkerEnvVar, "0")

	var ns string
	t.Run("inner", func(t *testing.T) {
		res := Load(t, mock, dir)
		ns = res.TargetNamespace
		if ns != "FIXTURE_0_TESTLOAD_CLEANSUPAFTERTEST_INNER" {
			t.Errorf("TargetNamespace = %q", ns)
		}
		if !mock.HasNamespace(ns) {
			t.Error("namespace should exist during the test")
		}
	})

	if mock.HasNamespace(ns) {
		t.Error("namespace should be dropped after the test")
	}
	if len(mock.GetCallsFor("Drop")) != 1 {
		t.Errorf("Drop calls = %d, want 1", len(mock.GetCallsFor("Drop")))
	}
}

func TestLoad_Options(t *testing.T) {
	mock, dir := newFixture(t)
	mock.AddNamespace("STALE", map[string]int64{"old": 1})
	cached := validator.NewCachedValidator(validator.New(), validator.DefaultCacheTTL)

	tb := &recordingTB{name: "TestLoad_Options"}
	res := Load(tb, mock, dir,
		WithNamespace("STALE"),
		WithOverwrite(),
		WithRowCounts(fixture.RowCountPolicy{Verify: false}),
		WithValidator(cached),
	)

	if len(tb.fatals) != 0 {
		t.Fatalf("unexpected fatal: %v", tb.fatals)
	}
	if res.TargetNamespace != "STALE" {
		t.Errorf("TargetNamespace = %q", res.TargetNamespace)
	}
	if cached.Cache().Len() != 1 {
		t.Errorf("cache entries = %d, want 1", cached.Cache().Len())
	}

	tb.runCleanups()
	if mock.HasNamespace("STALE") {
		t.Error("cleanup should drop the namespace")
	}
}

func TestLoad_FailureIsFatal(t *testing.T) {
	mock, dir := newFixture(t)
	mock.AddNamespace("TAKEN", map[string]int64{"other": 1})

	tb := &recordingTB{name: "TestLoad_FailureIsFatal"}
	res := Load(tb, mock, dir, WithNamespace("TAKEN"))

	if res != nil {
		t.Error("Load() should return nil on failure")
	}
	if len(tb.fatals) != 1 || !strings.Contains(tb.fatals[0], "TAKEN") {
		t.Errorf("fatals = %v", tb.fatals)
	}
	if len(tb.cleanups) != 0 {
		t.Error("no cleanup should be registered for a failed load")
	}
}

func TestLoad_CleanupFailureIsLogged(t *testing.T) {
	mock, dir := newFixture(t)

	tb := &recordingTB{name: "TestLoad_CleanupFailureIsLogged"}
	Load(tb, mock, dir, WithNamespace("TMP"))
	mock.SetError("Drop", errors.New("permission denied"))

	tb.runCleanups()

	if len(tb.fatals) != 0 {
		t.Errorf("cleanup failure should not be fatal: %v", tb.fatals)
	}
	found := false
	for _, l := range tb.logs {
		if strings.Contains(l, "TMP") && strings.Contains(l, "permission denied") {
			found = true
		}
	}
	if !found {
		t.Errorf("logs = %v", tb.logs)
	}
}
