// Package config provides configuration loading for fixture-ctl.
//
// # Configuration File
//
// Settings live in fixture-ctl.toml, found in this order:
//
//   - the --config flag
//   - $FIXTURE_CTL_CONFIG
//   - ./fixture-ctl.toml
//
// A missing file is not an error; Default() applies.
//
//	fixtures_dir = "fixtures"
//	state_dir    = ".fixture-ctl"
//
//	[backend]
//	type = "auto"            # auto | sqlite | command
//
//	[backend.sqlite]
//	data_dir = ".fixture-ctl/namespaces"
//
//	[backend.command]
//	exists  = "dbctl exists {namespace}"
//	backup  = "dbctl backup {namespace} {snapshot}"
//	restore = "dbctl restore {namespace} {snapshot}"
//	drop    = "dbctl drop {namespace}"
//	tables  = "dbctl tables {namespace}"
//
//	[load]
//	overwrite           = false
//	verify_row_counts   = true
//	row_count_tolerance = 0.0
//
// Relative directories are resolved against the file's directory.
//
// # Validation
//
// Every section implements Validate(). ValidateNamespaceName and
// ValidateFixtureID check user-supplied names before they reach a backend
// or the filesystem.
package config
