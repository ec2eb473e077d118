// Package health provides health checks for the fixture environment.
//
// Health checks verify that fixture-ctl can do its work: the namespace
// backend answers, the state directory is writable and every fixture in
// the fixtures directory validates.
//
// # Status Levels
//
//	StatusHealthy     - Backend reachable, state writable, all fixtures valid
//	StatusDegraded    - Backend reachable, but fixtures are invalid or state is read-only
//	StatusUnavailable - No working namespace backend
//
// # Usage
//
//	result := health.Check(ctx, health.CheckOptions{
//	    Backend: backend,
//	    Paths:   paths,
//	})
//	switch result.Summary() {
//	case health.StatusHealthy:
//	    // Ready to create and load fixtures
//	case health.StatusUnavailable:
//	    // Fix the [backend] configuration
//	}
package health
