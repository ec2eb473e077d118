package namespace

import (
	"fmt"
	"strings"

	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/system"
)

// Type is the configured backend type.
type Type string

const (
	TypeAuto    Type = "auto"
	TypeSQLite  Type = "sqlite"
	TypeCommand Type = "command"
)

// Kind is the backend selected by Detect.
type Kind string

const (
	KindSQLite      Kind = "sqlite"
	KindCommand     Kind = "command"
	KindUnavailable Kind = "unavailable"
)

// Config holds backend configuration.
type Config struct {
	// Type specifies which backend to use (or "auto" for detection)
	Type Type

	SQLite  SQLiteConfig
	Command CommandConfig
}

// SQLiteConfig configures SQLiteBackend.
type SQLiteConfig struct {
	// DataDir holds one <namespace>.db file per namespace
	DataDir string
}

// CommandConfig holds the shell-quoted command templates used by
// CommandBackend. Templates may reference {namespace}, {snapshot} and
// {table}.
type CommandConfig struct {
	Exists  string
	Create  string
	Backup  string
	Restore string
	Unmount string
	Drop    string
	Tables  string
	Count   string
	Version string
}

// Required returns the names of required templates that are empty.
func (c CommandConfig) Required() []string {
	var missing []string
	for _, t := range []struct {
		name  string
		value string
	}{
		{"exists", c.Exists},
		{"backup", c.Backup},
		{"restore", c.Restore},
		{"drop", c.Drop},
		{"tables", c.Tables},
	} {
		if strings.TrimSpace(t.value) == "" {
			missing = append(missing, t.name)
		}
	}
	return missing
}

// Configured reports whether any template is set.
func (c CommandConfig) Configured() bool {
	return c != CommandConfig{}
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:   TypeAuto,
		SQLite: SQLiteConfig{DataDir: ".fixture-ctl/namespaces"},
	}
}

// Detect picks a backend from configuration alone. It performs no I/O so
// the choice can be made once at start-up and injected into callers.
func Detect(cfg *Config) Kind {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Type {
	case TypeSQLite:
		if cfg.SQLite.DataDir == "" {
			return KindUnavailable
		}
		return KindSQLite
	case TypeCommand:
		if len(cfg.Command.Required()) > 0 {
			return KindUnavailable
		}
		return KindCommand
	case TypeAuto, "":
		if cfg.Command.Configured() && len(cfg.Command.Required()) == 0 {
			return KindCommand
		}
		if cfg.SQLite.DataDir != "" {
			return KindSQLite
		}
		return KindUnavailable
	default:
		return KindUnavailable
	}
}

// New creates the Backend chosen by Detect. exec runs command templates
// and may be nil to use the system default.
func New(cfg *Config, exec system.CommandExecutor) (Backend, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	kind := Detect(cfg)
	logging.Debug("creating namespace backend", "type", cfg.Type, "kind", kind)

	switch kind {
	case KindSQLite:
		return NewSQLiteBackend(cfg.SQLite.DataDir)
	case KindCommand:
		if exec == nil {
			exec = system.DefaultExecutor()
		}
		return NewCommandBackend(cfg.Command, exec)
	default:
		return nil, unavailableError(cfg)
	}
}

func unavailableError(cfg *Config) error {
	switch cfg.Type {
	case TypeCommand:
		return fmt.Errorf("command backend is missing templates: %s", strings.Join(cfg.Command.Required(), ", "))
	case TypeSQLite:
		return fmt.Errorf("sqlite backend requires data_dir")
	case TypeAuto, "":
		if cfg.Command.Configured() {
			return fmt.Errorf("command backend is missing templates: %s", strings.Join(cfg.Command.Required(), ", "))
		}
		return fmt.Errorf("no namespace backend configured (set backend.sqlite.data_dir or backend.command templates)")
	default:
		return fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
