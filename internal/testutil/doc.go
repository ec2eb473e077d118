// Package testutil provides test fixtures and utilities.
//
// This package contains embedded manifest fixtures and a test environment
// wired to a mock namespace backend.
//
// # Fixtures
//
// JSON fixtures are embedded using go:embed:
//
//	fixtures/valid_manifest.json
//	fixtures/invalid_manifest.json
//
// Helper functions load them:
//
//	m, err := testutil.ValidManifest()
//	data, err := testutil.InvalidManifestData()
//	data, err := testutil.LoadFixture("valid_manifest.json")
//
// # Test Environment
//
// NewTestEnv creates temporary fixture and state directories, a
// namespace.MockBackend and an app.App installed as app.Default:
//
//	func TestLoadCommand(t *testing.T) {
//	    env := testutil.NewTestEnv(t)
//	    defer env.Cleanup()
//
//	    env.AddNamespace("SRC", map[string]int64{"patients": 100})
//	    dir := env.CreateFixture("patients", "SRC")
//	    ...
//	}
package testutil
