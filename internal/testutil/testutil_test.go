package testutil

import (
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

func TestNewTestEnv(t *testing.T) {
	original := app.Default
	env := NewTestEnv(t)

	if app.Default != env.App {
		t.Error("NewTestEnv should install its app as default")
	}
	if env.App.Backend != env.Backend {
		t.Error("app should use the mock backend")
	}

	env.AddNamespace("SRC", map[string]int64{"patients": 3})
	dir := env.CreateFixture("patients", "SRC")

	if r := validator.New().ValidateFixture(dir); !r.Valid {
		t.Fatalf("created fixture should be valid: %v", r.Errors)
	}

	env.CorruptSnapshot(dir)
	if r := validator.New().ValidateFixture(dir); !r.HasCode(validator.CodeChecksumMismatch) {
		t.Errorf("corrupted fixture should fail the checksum: %v", r.Errors)
	}

	env.Cleanup()
	if app.Default != original {
		t.Error("Cleanup should restore the original default")
	}
}
