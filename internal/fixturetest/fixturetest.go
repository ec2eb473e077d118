// Package fixturetest loads fixtures from Go tests.
//
// Load mounts a fixture into a namespace unique to the calling test and
// drops it again when the test finishes:
//
//	func TestPatientQueries(t *testing.T) {
//	    res := fixturetest.Load(t, backend, "testdata/patients-100")
//	    db := connect(res.TargetNamespace)
//	    ...
//	}
//
// Parallel test processes get distinct namespaces through
// $FIXTURE_WORKER_ID, falling back to the process id.
package fixturetest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// WorkerEnvVar names the variable that identifies a parallel test worker.
const WorkerEnvVar = "FIXTURE_WORKER_ID"

const (
	namespacePrefix = "FIXTURE"
	maxNamespaceLen = 64
)

type options struct {
	namespace string
	overwrite bool
	rowCounts *fixture.RowCountPolicy
	validator validator.FixtureValidator
}

// Option configures Load.
type Option func(*options)

// WithNamespace loads into ns instead of a generated namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithOverwrite replaces a namespace left behind by an earlier run.
func WithOverwrite() Option {
	return func(o *options) { o.overwrite = true }
}

// WithRowCounts sets the row count policy used after mounting.
func WithRowCounts(p fixture.RowCountPolicy) Option {
	return func(o *options) { o.rowCounts = &p }
}

// WithValidator shares a validator between loads, typically a
// validator.CachedValidator so each fixture is hashed once per run.
func WithValidator(v validator.FixtureValidator) Option {
	return func(o *options) { o.validator = v }
}

// UniqueNamespace derives a namespace name from the worker id and the test
// name, e.g. FIXTURE_3_TESTPATIENTS_BY_AGE.
func UniqueNamespace(tb testing.TB) string {
	worker := os.Getenv(WorkerEnvVar)
	if worker == "" {
		worker = fmt.Sprint(os.Getpid())
	}
	name := fmt.Sprintf("%s_%s_%s", namespacePrefix, sanitize(worker), sanitize(tb.Name()))
	if len(name) > maxNamespaceLen {
		name = strings.TrimRight(name[:maxNamespaceLen], "_")
	}
	return name
}

// sanitize upper-cases s and replaces everything outside [A-Z0-9_].
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// Load mounts the fixture at fixtureDir for the duration of the test. The
// namespace is deleted by tb.Cleanup; a cleanup failure is logged rather than
// failing the test. A load failure stops the test with the error guidance.
func Load(tb testing.TB, backend namespace.Backend, fixtureDir string, opts ...Option) *fixture.LoadResult {
	tb.Helper()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ns := o.namespace
	if ns == "" {
		ns = UniqueNamespace(tb)
	}

	var loaderOpts []fixture.Option
	if o.validator != nil {
		loaderOpts = append(loaderOpts, fixture.WithFixtureValidator(o.validator))
	}
	loader := fixture.NewLoader(backend, loaderOpts...)

	res, err := loader.Load(context.Background(), fixture.LoadOptions{
		FixtureDir:      fixtureDir,
		TargetNamespace: ns,
		Overwrite:       o.overwrite,
		RowCounts:       o.rowCounts,
	})
	if err != nil {
		tb.Fatalf("loading fixture %s into %s: %s", fixtureDir, ns, fixerrors.GuidanceFor(err))
		return nil
	}

	tb.Cleanup(func() {
		if err := loader.Cleanup(context.Background(), ns, true); err != nil {
			tb.Logf("warning: failed to clean up namespace %s: %v", ns, err)
		}
	})

	for _, w := range res.Warnings {
		tb.Logf("fixture %s: %s", res.Manifest.FixtureID, w)
	}
	return res
}
