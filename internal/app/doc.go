// Package app provides the application context for fixture-ctl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config    *config.Config             // fixture-ctl.toml
//	    Paths     *config.Paths              // fixtures, state and event dirs
//	    Backend   namespace.Backend          // detected once at start-up
//	    Audit     *audit.Logger              // lifecycle event log
//	    Validator *validator.CachedValidator // shared validation cache
//	}
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithPaths(testPaths),
//	    app.WithBackend(namespace.NewMockBackend()),
//	)
//
// # Available Options
//
//	WithConfig(cfg)        // Loaded configuration
//	WithPaths(paths)       // Custom path configuration
//	WithBackend(backend)   // Custom namespace backend
//	WithExecutor(exec)     // Executor for the command backend
//	WithAudit(logger)      // Custom audit logger
package app
