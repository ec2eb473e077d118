package namespace

import (
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/fixture-ctl/internal/system"
)

func TestDetect(t *testing.T) {
	full := testTemplates()
	partial := CommandConfig{Backup: "tool backup"}

	tests := []struct {
		name string
		cfg  *Config
		want Kind
	}{
		{"nil config defaults to sqlite", nil, KindSQLite},
		{"explicit sqlite", &Config{Type: TypeSQLite, SQLite: SQLiteConfig{DataDir: "d"}}, KindSQLite},
		{"sqlite without dir", &Config{Type: TypeSQLite}, KindUnavailable},
		{"explicit command", &Config{Type: TypeCommand, Command: full}, KindCommand},
		{"command missing templates", &Config{Type: TypeCommand, Command: partial}, KindUnavailable},
		{"auto prefers command", &Config{Type: TypeAuto, Command: full, SQLite: SQLiteConfig{DataDir: "d"}}, KindCommand},
		{"auto falls back to sqlite", &Config{Type: TypeAuto, SQLite: SQLiteConfig{DataDir: "d"}}, KindSQLite},
		{"auto with partial command", &Config{Type: TypeAuto, Command: partial, SQLite: SQLiteConfig{DataDir: "d"}}, KindSQLite},
		{"auto with nothing", &Config{Type: TypeAuto}, KindUnavailable},
		{"unknown type", &Config{Type: "oracle"}, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.cfg); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ns")

	b, err := New(&Config{Type: TypeSQLite, SQLite: SQLiteConfig{DataDir: dir}}, nil)
	if err != nil {
		t.Fatalf("New(sqlite) error: %v", err)
	}
	if b.Name() != "sqlite" {
		t.Errorf("Name() = %q, want sqlite", b.Name())
	}

	b, err = New(&Config{Type: TypeCommand, Command: testTemplates()}, system.NewMockExecutor())
	if err != nil {
		t.Fatalf("New(command) error: %v", err)
	}
	if b.Name() != "command" {
		t.Errorf("Name() = %q, want command", b.Name())
	}

	if _, err := New(&Config{Type: TypeCommand}, nil); err == nil {
		t.Error("New() with missing templates should fail")
	}
	if _, err := New(&Config{Type: TypeAuto}, nil); err == nil {
		t.Error("New() with nothing configured should fail")
	}
}
