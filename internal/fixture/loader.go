package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/fixture-ctl/internal/config"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// Phase is a step of the load state machine.
type Phase string

const (
	PhasePreValidate Phase = "pre_validate"
	PhaseMount       Phase = "mount"
	PhasePostVerify  Phase = "post_verify"
	PhaseCommitted   Phase = "committed"
	PhaseRolledBack  Phase = "rolled_back"
)

// Transition is reported to the transition hook on each phase change.
// Err is set on the transition to PhaseRolledBack.
type Transition struct {
	OperationID string
	FixtureID   string
	Namespace   string
	From        Phase
	To          Phase
	Err         error
}

// RowCountPolicy controls post-load row count verification.
type RowCountPolicy struct {
	// Verify compares observed counts against the manifest.
	Verify bool

	// Tolerance is the allowed drift as a fraction of the manifest count.
	// An observed count passes when |observed-expected| <= ceil(expected*Tolerance).
	Tolerance float64
}

// ExactRowCounts requires every table to match its manifest count exactly.
func ExactRowCounts() RowCountPolicy {
	return RowCountPolicy{Verify: true}
}

// Allows reports whether observed is acceptable for expected.
func (p RowCountPolicy) Allows(expected, observed int64) bool {
	if !p.Verify {
		return true
	}
	diff := observed - expected
	if diff < 0 {
		diff = -diff
	}
	allowed := int64(math.Ceil(float64(expected) * p.Tolerance))
	return diff <= allowed
}

// LoadOptions describes a load.
type LoadOptions struct {
	FixtureDir string

	// TargetNamespace defaults to the manifest's source namespace.
	TargetNamespace string

	// Overwrite drops an existing target namespace instead of failing.
	// The drop happens before the mount, so a load that fails afterwards
	// leaves the target absent and its previous contents are lost.
	Overwrite bool

	// RowCounts defaults to ExactRowCounts.
	RowCounts *RowCountPolicy
}

// LoadResult describes a committed load.
type LoadResult struct {
	Success         bool
	Manifest        *manifest.Manifest
	TargetNamespace string
	TablesLoaded    []string
	ElapsedSeconds  float64
	OperationID     string
	Warnings        []string
}

// Loader mounts validated fixtures into namespaces.
type Loader struct {
	backend      namespace.Backend
	validator    validator.FixtureValidator
	onTransition func(Transition)
	now          func() time.Time
}

// NewLoader returns a Loader that mounts through backend.
func NewLoader(backend namespace.Backend, opts ...Option) *Loader {
	o := newOptions(opts)
	return &Loader{
		backend:      backend,
		validator:    o.fixtureValidator,
		onTransition: o.onTransition,
		now:          o.now,
	}
}

// loadOp is the journal of one load. The phase is advanced before each
// backend mutation so a failure always knows what to undo.
type loadOp struct {
	id        string
	fixtureID string
	target    string
	phase     Phase
	mounted   bool
	reclaimed bool
	log       *slog.Logger
}

func (l *Loader) advance(op *loadOp, to Phase, err error) {
	t := Transition{
		OperationID: op.id,
		FixtureID:   op.fixtureID,
		Namespace:   op.target,
		From:        op.phase,
		To:          to,
		Err:         err,
	}
	op.phase = to
	op.log.Debug("load phase", "from", t.From, "to", t.To, "operation", op.id)
	if l.onTransition != nil {
		l.onTransition(t)
	}
}

// ValidateFixture validates dir and returns its manifest, or the error
// describing why it cannot be loaded.
func (l *Loader) ValidateFixture(dir string) (*manifest.Manifest, error) {
	r := l.validator.ValidateFixture(dir)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.Manifest, nil
}

// Load validates the fixture and mounts it into the target namespace.
// Validation and the collision check happen before any mutation. A failure
// after the mount has started drops the target namespace before returning,
// so callers never observe a partially loaded namespace. Cancelling ctx
// takes the same rollback path.
//
// An existing target that holds no tables, such as one left by an unmount
// cleanup, is not a collision. It is replaced by the mount and recreated
// empty if the load rolls back.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	start := l.now()
	policy := ExactRowCounts()
	if opts.RowCounts != nil {
		policy = *opts.RowCounts
	}

	r := l.validator.ValidateFixture(opts.FixtureDir)
	if err := r.Err(); err != nil {
		return nil, err
	}
	m := r.Manifest

	target := opts.TargetNamespace
	if target == "" {
		target = m.Namespace
	}
	if err := config.ValidateNamespaceName(target); err != nil {
		return nil, fixerrors.InvalidArgument(err.Error())
	}

	op := &loadOp{
		id:        uuid.NewString(),
		fixtureID: m.FixtureID,
		target:    target,
		phase:     PhasePreValidate,
		log:       logging.ForFixture(m.FixtureID, target),
	}

	exists, err := l.backend.Exists(ctx, target)
	if err != nil {
		return nil, fixerrors.LoadFailed(fmt.Sprintf("failed to check target namespace %s", target), err)
	}
	if exists && !opts.Overwrite {
		tables, err := l.backend.Tables(ctx, target)
		if err != nil {
			return nil, fixerrors.LoadFailed(fmt.Sprintf("failed to list tables in %s", target), err)
		}
		if len(tables) > 0 {
			return nil, fixerrors.NamespaceCollision(target)
		}
		op.reclaimed = true
	}
	if err := ctx.Err(); err != nil {
		return nil, fixerrors.LoadFailed("load cancelled before mount", err)
	}
	if exists {
		op.log.Debug("dropping existing namespace", "overwrite", opts.Overwrite, "empty", op.reclaimed)
		if err := l.backend.Drop(ctx, target); err != nil && !errors.Is(err, namespace.ErrNotFound) {
			return nil, fixerrors.LoadFailed(fmt.Sprintf("failed to drop existing namespace %s", target), err)
		}
	}

	l.advance(op, PhaseMount, nil)
	op.mounted = true
	if err := l.backend.Mount(ctx, target, r.SnapshotPath); err != nil {
		return nil, l.rollback(ctx, op, fmt.Errorf("mount failed: %w", err))
	}

	l.advance(op, PhasePostVerify, nil)
	warnings, err := l.verify(ctx, target, m, policy)
	if err != nil {
		return nil, l.rollback(ctx, op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, l.rollback(ctx, op, err)
	}

	l.advance(op, PhaseCommitted, nil)
	for _, w := range warnings {
		op.log.Warn(w)
	}

	return &LoadResult{
		Success:         true,
		Manifest:        m,
		TargetNamespace: target,
		TablesLoaded:    m.TableNames(),
		ElapsedSeconds:  l.now().Sub(start).Seconds(),
		OperationID:     op.id,
		Warnings:        warnings,
	}, nil
}

// verify confirms every manifest table is queryable in target and, per
// policy, that its row count matches.
func (l *Loader) verify(ctx context.Context, target string, m *manifest.Manifest, policy RowCountPolicy) ([]string, error) {
	present, err := l.backend.Tables(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", target, err)
	}
	seen := make(map[string]bool, len(present))
	for _, name := range present {
		seen[name] = true
	}

	var warnings []string
	var mismatches []error
	for _, t := range m.Tables {
		if !seen[t.Name] {
			mismatches = append(mismatches, fmt.Errorf("table %s is missing after mount", t.Name))
			continue
		}
		delete(seen, t.Name)

		n, err := l.backend.CountRows(ctx, target, t.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s is not queryable: %w", t.Name, err)
		}
		switch {
		case n == t.RowCount:
		case !policy.Verify:
			warnings = append(warnings, fmt.Sprintf("table %s has %d rows, manifest has %d (row count check skipped)", t.Name, n, t.RowCount))
		case policy.Allows(t.RowCount, n):
			warnings = append(warnings, fmt.Sprintf("table %s has %d rows, manifest has %d (within tolerance)", t.Name, n, t.RowCount))
		default:
			mismatches = append(mismatches, fmt.Errorf("table %s has %d rows, manifest has %d", t.Name, n, t.RowCount))
		}
	}
	if len(mismatches) > 0 {
		return nil, fmt.Errorf("row count verification failed: %w", errors.Join(mismatches...))
	}

	for _, name := range present {
		if seen[name] {
			warnings = append(warnings, fmt.Sprintf("table %s is not listed in the manifest", name))
		}
	}
	return warnings, nil
}

// rollback drops the target namespace and returns the load error. The drop
// runs on a context detached from ctx so cancellation cannot skip it.
func (l *Loader) rollback(ctx context.Context, op *loadOp, cause error) error {
	failedIn := op.phase
	op.log.Debug("rolling back load", "phase", failedIn, "error", cause)

	var dropErr error
	if op.mounted {
		detached := context.WithoutCancel(ctx)
		if err := l.backend.Drop(detached, op.target); err != nil && !errors.Is(err, namespace.ErrNotFound) {
			dropErr = fmt.Errorf("rollback of %s failed: %w", op.target, err)
		} else if op.reclaimed {
			if err := l.backend.Create(detached, op.target); err != nil {
				op.log.Warn("failed to recreate empty namespace after rollback", "error", err)
			}
		}
	}

	loadErr := fixerrors.LoadFailed(
		fmt.Sprintf("failed to load fixture %s into %s during %s", op.fixtureID, op.target, failedIn),
		errors.Join(cause, dropErr),
	)
	if dropErr != nil {
		loadErr.WithRemediation(
			"Namespace "+op.target+" may be partially loaded",
			"Remove it with: fixture-ctl cleanup --delete "+op.target,
		)
	} else {
		loadErr.WithRemediation(
			"Check the backend output above",
			"Run: fixture-ctl validate on the fixture, then retry the load",
		)
	}

	l.advance(op, PhaseRolledBack, loadErr)
	return loadErr
}

// Cleanup removes a loaded namespace. With del it drops the namespace,
// otherwise it unmounts its data and keeps it. A namespace that does not
// exist is already clean, so Cleanup is safe to call repeatedly and after
// a failed load.
func (l *Loader) Cleanup(ctx context.Context, ns string, del bool) error {
	if err := config.ValidateNamespaceName(ns); err != nil {
		return fixerrors.InvalidArgument(err.Error())
	}

	exists, err := l.backend.Exists(ctx, ns)
	if err != nil {
		return fixerrors.LoadFailed(fmt.Sprintf("failed to check namespace %s", ns), err)
	}
	if !exists {
		logging.Debug("cleanup: namespace already absent", "namespace", ns)
		return nil
	}

	op, action := l.backend.Unmount, "unmount"
	if del {
		op, action = l.backend.Drop, "drop"
	}
	if err := op(ctx, ns); err != nil && !errors.Is(err, namespace.ErrNotFound) {
		return fixerrors.LoadFailed(fmt.Sprintf("cleanup failed to %s namespace %s", action, ns), err).
			WithRemediation("Remove the namespace manually with the database's own tooling")
	}
	logging.Debug("cleaned up namespace", "namespace", ns, "action", action)
	return nil
}
