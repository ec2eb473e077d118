// Package logging provides logging utilities for fixture-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("mounting snapshot", "namespace", ns, "snapshot", path)
//	logging.ForFixture(m.FixtureID, ns).Debug("phase transition", "to", phase)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Validating fixture %s...", dir)
//	logging.UserSuccess("Loaded %d tables into %s", n, ns)
//	logging.UserWarning("Namespace %s has no tables", ns)
//	logging.UserError("Load failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// SetUserOutput redirects both streams, which the command tests use to
// capture output.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
