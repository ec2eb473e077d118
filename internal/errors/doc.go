// Package errors provides typed errors with exit codes for fixture-ctl.
//
// # Error Types
//
// FixtureError is the base error type. It carries a kind, an exit code, a
// diagnosis and remediation steps:
//
//	type FixtureError struct {
//	    Kind        Kind     // Error category
//	    Code        int      // Exit code
//	    Message     string   // What went wrong
//	    Remediation []string // How to fix it
//	    Cause       error    // Wrapped error
//	}
//
// # Exit Codes
//
// Each error category maps to its own exit code so scripts and CI jobs can
// tell a missing manifest from a corrupted snapshot:
//
//	ExitSuccess            = 0  // Success
//	ExitGeneralError       = 1  // General/unknown errors
//	ExitManifestNotFound   = 2  // manifest.json missing
//	ExitValidationFailed   = 3  // Structural manifest/file problems
//	ExitChecksumMismatch   = 4  // Snapshot does not match its checksum
//	ExitCreateFailed       = 5  // Export/backup failure
//	ExitLoadFailed         = 6  // Mount/restore/verify failure
//	ExitNamespaceCollision = 7  // Target namespace already occupied
//	ExitConfigError        = 8  // Configuration error
//	ExitFixtureExists      = 9  // Output directory already exists
//	ExitNamespaceNotFound  = 10 // Source namespace does not exist
//
// # Matching
//
// Each kind has a sentinel so callers can use the standard library:
//
//	if errors.Is(err, fixerrors.ErrChecksumMismatch) {
//	    // never retry
//	}
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
