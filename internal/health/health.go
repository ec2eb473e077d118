package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/firefly-engineering/fixture-ctl/internal/config"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/tui"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// Status represents the overall health of the fixture environment
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"

	// ProbeTimeout bounds the backend probe.
	ProbeTimeout = 10 * time.Second
)

// CheckOptions holds the dependencies inspected by Check.
type CheckOptions struct {
	Backend    namespace.Backend
	BackendErr error
	Paths      *config.Paths
	Validator  validator.FixtureValidator
	Now        func() time.Time
}

// FixtureStatus is the health of one fixture.
type FixtureStatus struct {
	ID       string
	Dir      string
	Valid    bool
	Problems []string
	Age      string
}

// CheckResult contains the results of health checks
type CheckResult struct {
	BackendAvailable bool
	BackendName      string
	EngineVersion    string
	BackendError     string
	StateWritable    bool
	StateError       string
	Fixtures         []FixtureStatus
}

// InvalidFixtures returns the number of fixtures that failed validation.
func (r *CheckResult) InvalidFixtures() int {
	n := 0
	for _, f := range r.Fixtures {
		if !f.Valid {
			n++
		}
	}
	return n
}

// Summary returns the overall status. Without a working backend nothing
// can be created or loaded; invalid fixtures or an unwritable state
// directory only degrade the environment.
func (r *CheckResult) Summary() Status {
	if !r.BackendAvailable {
		return StatusUnavailable
	}
	if !r.StateWritable || r.InvalidFixtures() > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

// CheckBackend probes the backend by asking for its engine version.
func CheckBackend(ctx context.Context, b namespace.Backend) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	return b.EngineVersion(ctx)
}

// CheckStateDir verifies that the state directory can be written.
func CheckStateDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FixtureAge returns how long ago createdAt was, or "unknown" when it is
// missing or not RFC 3339.
func FixtureAge(createdAt string, now time.Time) string {
	if createdAt == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "unknown"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return formatDuration(d)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// Check performs all health checks.
func Check(ctx context.Context, opts CheckOptions) *CheckResult {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	result := &CheckResult{}

	// Check backend
	if opts.Backend == nil {
		if opts.BackendErr != nil {
			result.BackendError = opts.BackendErr.Error()
		} else {
			result.BackendError = "no backend configured"
		}
	} else {
		result.BackendName = opts.Backend.Name()
		version, err := CheckBackend(ctx, opts.Backend)
		if err != nil {
			result.BackendError = err.Error()
		} else {
			result.BackendAvailable = true
			result.EngineVersion = version
		}
	}

	if opts.Paths == nil {
		return result
	}

	// Check state directory
	if err := CheckStateDir(opts.Paths.StateDir); err != nil {
		result.StateError = err.Error()
	} else {
		result.StateWritable = true
	}

	// Check fixtures
	dirs, err := config.ListFixtureDirs(opts.Paths.FixturesDir)
	if err != nil {
		return result
	}
	now := opts.Now()
	for _, dir := range dirs {
		e := tui.EntryFromResult(dir, opts.Validator.ValidateFixture(dir))
		fs := FixtureStatus{ID: e.ID(), Dir: dir, Valid: e.Valid, Problems: e.Errors, Age: "unknown"}
		if e.Manifest != nil {
			fs.Age = FixtureAge(e.Manifest.CreatedAt, now)
		}
		result.Fixtures = append(result.Fixtures, fs)
	}

	return result
}
