// Package manifest defines the fixture manifest and its on-disk format.
//
// A fixture directory holds exactly one manifest.json next to the snapshot
// file it describes:
//
//	fixtures/test-100/
//	├── manifest.json
//	└── snapshot.dat
//
// Manifests are written with Write, which replaces the file atomically.
// Refresh and checksum recalculation call Archive first so the previous
// manifest survives as manifest.json.backup.
//
// The snapshot_file field is always resolved with SnapshotPath, which keeps
// the result inside the fixture directory.
package manifest
