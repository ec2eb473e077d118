package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

const (
	DefaultConfigFile  = "fixture-ctl.toml"
	ConfigEnvVar       = "FIXTURE_CTL_CONFIG"
	DefaultFixturesDir = "fixtures"
	DefaultStateDir    = ".fixture-ctl"
)

// Backend types accepted in [backend] type.
const (
	BackendAuto    = "auto"
	BackendSQLite  = "sqlite"
	BackendCommand = "command"
)

// namespaceNameRegex validates namespace names.
// Names start with a letter, digit, underscore or percent sign, followed by
// letters, digits, underscores or hyphens. Maximum length is 64 characters.
var namespaceNameRegex = regexp.MustCompile(`^[A-Za-z0-9_%][A-Za-z0-9_-]{0,63}$`)

// fixtureIDRegex validates fixture identifiers.
var fixtureIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateNamespaceName checks if a namespace name is valid.
// Valid names:
//   - Start with a letter, digit, underscore or percent sign
//   - Contain only letters, digits, underscores, or hyphens
//   - Are between 1 and 64 characters long
func ValidateNamespaceName(name string) error {
	if name == "" {
		return fmt.Errorf("namespace name cannot be empty")
	}

	if !namespaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid namespace name %q: must start with a letter, digit, underscore or %%, contain only letters, digits, underscores, or hyphens, and be at most 64 characters", name)
	}

	return nil
}

// ValidateFixtureID checks if a fixture identifier is valid.
func ValidateFixtureID(id string) error {
	if id == "" {
		return fmt.Errorf("fixture id cannot be empty")
	}
	if !fixtureIDRegex.MatchString(id) {
		return fmt.Errorf("invalid fixture id %q: must start with a letter or digit and contain only letters, digits, dots, underscores, or hyphens", id)
	}
	return nil
}

// safePath validates that a constructed path stays within the base directory.
// This prevents path traversal where names like "../../../etc/passwd"
// could escape the intended directory.
func safePath(baseDir, name, suffix string) (string, error) {
	// Reject absolute paths in name
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}

	// Reject names containing path separators
	if filepath.Dir(name) != "." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	path := filepath.Join(baseDir, name+suffix)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// Add separator to prevent prefix matching (e.g., fixtures vs fixtures-evil)
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("path escapes base directory")
	}

	return path, nil
}

// Config is the fixture-ctl.toml file.
type Config struct {
	FixturesDir string        `toml:"fixtures_dir"`
	StateDir    string        `toml:"state_dir"`
	Backend     BackendConfig `toml:"backend"`
	Load        LoadConfig    `toml:"load"`

	// Source is the file the configuration was read from; empty for defaults.
	Source string `toml:"-"`
}

// BackendConfig is the [backend] section.
type BackendConfig struct {
	Type    string        `toml:"type"`
	SQLite  SQLiteConfig  `toml:"sqlite"`
	Command CommandConfig `toml:"command"`
}

// SQLiteConfig is the [backend.sqlite] section.
type SQLiteConfig struct {
	DataDir string `toml:"data_dir"`
}

// CommandConfig is the [backend.command] section. Each value is a
// shell-quoted command template.
type CommandConfig struct {
	Exists  string `toml:"exists"`
	Create  string `toml:"create"`
	Backup  string `toml:"backup"`
	Restore string `toml:"restore"`
	Unmount string `toml:"unmount"`
	Drop    string `toml:"drop"`
	Tables  string `toml:"tables"`
	Count   string `toml:"count"`
	Version string `toml:"version"`
}

// LoadConfig is the [load] section.
type LoadConfig struct {
	Overwrite         bool    `toml:"overwrite"`
	VerifyRowCounts   bool    `toml:"verify_row_counts"`
	RowCountTolerance float64 `toml:"row_count_tolerance"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		FixturesDir: DefaultFixturesDir,
		StateDir:    DefaultStateDir,
		Backend: BackendConfig{
			Type: BackendAuto,
		},
		Load: LoadConfig{
			VerifyRowCounts: true,
		},
	}
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if c.FixturesDir == "" {
		return fmt.Errorf("fixtures_dir is required")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Load.Validate(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// Validate checks that the BackendConfig is valid.
func (b *BackendConfig) Validate() error {
	switch b.Type {
	case BackendAuto, BackendSQLite, BackendCommand:
	default:
		return fmt.Errorf("invalid type %q (must be auto, sqlite, or command)", b.Type)
	}
	if b.Type == BackendCommand && b.Command == (CommandConfig{}) {
		return fmt.Errorf("type is command but [backend.command] has no templates")
	}
	return nil
}

// Validate checks that the LoadConfig is valid.
func (l *LoadConfig) Validate() error {
	if l.RowCountTolerance < 0 || l.RowCountTolerance > 1 {
		return fmt.Errorf("row_count_tolerance must be between 0 and 1, got %v", l.RowCountTolerance)
	}
	return nil
}

// Discover returns the config file to use: the explicit path if given,
// then $FIXTURE_CTL_CONFIG, then ./fixture-ctl.toml if it exists. An empty
// result means no file and defaults apply.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file %s (from $%s): %w", env, ConfigEnvVar, err)
		}
		return env, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}
	return "", nil
}

// Load reads a config file on top of the defaults. Relative directories in
// the file are resolved against the file's directory. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	cfg.FixturesDir = resolve(base, cfg.FixturesDir)
	cfg.StateDir = resolve(base, cfg.StateDir)
	if cfg.Backend.SQLite.DataDir != "" {
		cfg.Backend.SQLite.DataDir = resolve(base, cfg.Backend.SQLite.DataDir)
	}
	cfg.Source = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault discovers and loads the config file, falling back to
// defaults when none exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Discover(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "." {
		return p
	}
	return filepath.Join(base, p)
}

// Paths holds the directories derived from a Config.
type Paths struct {
	FixturesDir   string
	StateDir      string
	NamespacesDir string
	EventsDir     string
}

// Paths derives the working directories. The SQLite data directory
// defaults to <state_dir>/namespaces.
func (c *Config) Paths() *Paths {
	namespacesDir := c.Backend.SQLite.DataDir
	if namespacesDir == "" {
		namespacesDir = filepath.Join(c.StateDir, "namespaces")
	}
	return &Paths{
		FixturesDir:   c.FixturesDir,
		StateDir:      c.StateDir,
		NamespacesDir: namespacesDir,
		EventsDir:     filepath.Join(c.StateDir, "events"),
	}
}

// DefaultPaths returns the paths for the default configuration.
func DefaultPaths() *Paths {
	return Default().Paths()
}

// FixtureDir returns <fixtures_dir>/<id> for a bare fixture id.
func (p *Paths) FixtureDir(id string) (string, error) {
	if err := ValidateFixtureID(id); err != nil {
		return "", err
	}
	path, err := safePath(p.FixturesDir, id, "")
	if err != nil {
		return "", fmt.Errorf("invalid fixture id: %w", err)
	}
	return path, nil
}

// ResolveFixtureDir accepts either a fixture directory path or a bare
// fixture id under fixtures_dir. Existing paths win.
func (p *Paths) ResolveFixtureDir(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	if dir, err := p.FixtureDir(arg); err == nil {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return arg
}

// ListFixtureDirs returns the subdirectories of dir that contain a
// manifest.json, sorted by name.
func ListFixtureDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fixtures directory: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(manifest.Path(path)); err == nil {
			dirs = append(dirs, path)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
