// Integration tests are skipped unless the FIXTURE_INTEGRATION_TESTS
// environment variable is set. The backend comes from the discovered
// fixture-ctl.toml, so the same tests run against SQLite or a real
// database driven by [backend.command] templates.
//
// # Test Harness
//
// TestHarness manages test environments:
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if env var not set
//
//	    src := h.SourceNamespace()
//	    _, err := h.Creator().Create(ctx, fixture.CreateOptions{...})
//
//	    // Cleanup is automatic via t.Cleanup
//	}
//
// # Harness Features
//
// The harness provides:
//   - Isolated temporary fixture and state directories
//   - A seeded source namespace on SQLite, or FIXTURE_INTEGRATION_NAMESPACE
//   - Namespace tracking for cleanup (TrackNamespace)
//
// # Running Integration Tests
//
//	FIXTURE_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
