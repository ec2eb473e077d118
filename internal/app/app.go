// Package app provides the application context for fixture-ctl.
// It allows dependency injection for testing.
package app

import (
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/namespace"
	"github.com/firefly-engineering/fixture-ctl/internal/system"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Paths holds the configured paths
	Paths *config.Paths

	// Backend is the namespace backend, detected once in New
	Backend namespace.Backend

	// BackendErr explains why Backend is nil
	BackendErr error

	// Audit records fixture lifecycle events
	Audit *audit.Logger

	// Validator checks fixtures; results are cached for list and load
	Validator *validator.CachedValidator

	executor system.CommandExecutor
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithBackend sets a custom namespace backend
func WithBackend(b namespace.Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithExecutor sets the executor used by the command backend
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.executor = exec
	}
}

// WithAudit sets a custom audit logger
func WithAudit(l *audit.Logger) Option {
	return func(a *App) {
		a.Audit = l
	}
}

// New creates a new App with the given options.
// If the backend is not provided via WithBackend, it is detected from the
// configuration. A detection failure is kept in BackendErr so commands that
// do not touch a database still work.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Paths == nil {
		app.Paths = app.Config.Paths()
	}
	if app.Audit == nil {
		app.Audit = audit.NewLogger(app.Paths.EventsDir)
	}
	if app.Validator == nil {
		app.Validator = validator.NewCachedValidator(validator.New(), validator.DefaultCacheTTL)
	}

	if app.Backend == nil {
		b, err := namespace.New(BackendConfig(app.Config, app.Paths), app.executor)
		if err != nil {
			logging.Debug("failed to initialize namespace backend", "error", err)
			app.BackendErr = err
		} else {
			app.Backend = b
		}
	}

	return app
}

// BackendConfig maps the [backend] section onto namespace.Config.
func BackendConfig(cfg *config.Config, paths *config.Paths) *namespace.Config {
	c := cfg.Backend.Command
	return &namespace.Config{
		Type:   namespace.Type(cfg.Backend.Type),
		SQLite: namespace.SQLiteConfig{DataDir: paths.NamespacesDir},
		Command: namespace.CommandConfig{
			Exists:  c.Exists,
			Create:  c.Create,
			Backup:  c.Backup,
			Restore: c.Restore,
			Unmount: c.Unmount,
			Drop:    c.Drop,
			Tables:  c.Tables,
			Count:   c.Count,
			Version: c.Version,
		},
	}
}

// RequireBackend returns the backend or a configuration error.
func (a *App) RequireBackend() (namespace.Backend, error) {
	if a.Backend != nil {
		return a.Backend, nil
	}
	return nil, fixerrors.ConfigError("no namespace backend available", a.BackendErr).
		WithRemediation(
			"Set [backend] in "+config.DefaultConfigFile,
			"Or point $"+config.ConfigEnvVar+" at a config file",
		)
}

// Creator returns a Creator bound to the app's backend.
func (a *App) Creator() (*fixture.Creator, error) {
	b, err := a.RequireBackend()
	if err != nil {
		return nil, err
	}
	return fixture.NewCreator(b), nil
}

// Loader returns a Loader bound to the app's backend. Rollbacks are
// recorded in the audit log.
func (a *App) Loader() (*fixture.Loader, error) {
	b, err := a.RequireBackend()
	if err != nil {
		return nil, err
	}
	return fixture.NewLoader(b,
		fixture.WithFixtureValidator(a.Validator),
		fixture.WithTransitionHook(a.recordRollback),
	), nil
}

func (a *App) recordRollback(t fixture.Transition) {
	if t.To != fixture.PhaseRolledBack {
		return
	}
	details := "operation=" + t.OperationID
	if t.Err != nil {
		details += " error=" + t.Err.Error()
	}
	a.Record(audit.EventRollback, t.FixtureID, t.Namespace, details)
}

// Record writes an audit event. Audit failures are logged, never returned.
func (a *App) Record(eventType audit.EventType, fixtureID, ns, details string) {
	if a.Audit == nil || fixtureID == "" {
		return
	}
	if err := a.Audit.LogEvent(eventType, fixtureID, ns, details); err != nil {
		logging.Warn("failed to write audit event", "type", eventType, "fixture", fixtureID, "error", err)
	}
}

// Default is the application instance used by the commands. The root
// command sets it before any subcommand runs.
var Default *App

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault clears the default application instance
func ResetDefault() {
	Default = nil
}
