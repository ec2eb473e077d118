// Package fixture exports database namespaces into fixtures and loads
// fixtures back into namespaces.
//
// # Creating fixtures
//
// A Creator backs up a live namespace into a new fixture directory,
// enumerates its tables and row counts, checksums the snapshot and writes
// manifest.json atomically:
//
//	c := fixture.NewCreator(backend)
//	res, err := c.Create(ctx, fixture.CreateOptions{
//	    FixtureID: "patients-100",
//	    Namespace: "USER",
//	    OutputDir: "fixtures/patients-100",
//	})
//
// Creation has no partial-success state. If any step fails the output
// directory is removed and a create error is returned.
//
// # Loading fixtures
//
// A Loader runs each load through a small state machine:
//
//	pre_validate -> mount -> post_verify -> committed
//	                  \          \
//	                   +----------+-> rolled_back
//
// Validation always happens before the target namespace is touched. A
// failure or cancellation after the mount has started drops the target
// namespace before the error is returned.
//
//	l := fixture.NewLoader(backend)
//	res, err := l.Load(ctx, fixture.LoadOptions{FixtureDir: dir, TargetNamespace: "TEST_1"})
//	defer l.Cleanup(ctx, "TEST_1", true)
package fixture
