package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for fixture-ctl
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitManifestNotFound   = 2
	ExitValidationFailed   = 3
	ExitChecksumMismatch   = 4
	ExitCreateFailed       = 5
	ExitLoadFailed         = 6
	ExitNamespaceCollision = 7
	ExitConfigError        = 8
	ExitFixtureExists      = 9
	ExitNamespaceNotFound  = 10
)

// Kind classifies a FixtureError.
type Kind string

const (
	KindGeneral            Kind = "general"
	KindManifestNotFound   Kind = "manifest-not-found"
	KindValidation         Kind = "validation"
	KindChecksumMismatch   Kind = "checksum-mismatch"
	KindCreate             Kind = "create"
	KindLoad               Kind = "load"
	KindNamespaceCollision Kind = "namespace-collision"
	KindConfig             Kind = "config"
	KindFixtureExists      Kind = "fixture-exists"
	KindNamespaceNotFound  Kind = "namespace-not-found"
)

// Sentinels for errors.Is matching against a kind.
var (
	ErrManifestNotFound   = &FixtureError{Kind: KindManifestNotFound, Code: ExitManifestNotFound, Message: "manifest not found"}
	ErrValidation         = &FixtureError{Kind: KindValidation, Code: ExitValidationFailed, Message: "fixture validation failed"}
	ErrChecksumMismatch   = &FixtureError{Kind: KindChecksumMismatch, Code: ExitChecksumMismatch, Message: "checksum mismatch"}
	ErrCreate             = &FixtureError{Kind: KindCreate, Code: ExitCreateFailed, Message: "fixture creation failed"}
	ErrLoad               = &FixtureError{Kind: KindLoad, Code: ExitLoadFailed, Message: "fixture load failed"}
	ErrNamespaceCollision = &FixtureError{Kind: KindNamespaceCollision, Code: ExitNamespaceCollision, Message: "namespace already exists"}
	ErrConfig             = &FixtureError{Kind: KindConfig, Code: ExitConfigError, Message: "configuration error"}
	ErrFixtureExists      = &FixtureError{Kind: KindFixtureExists, Code: ExitFixtureExists, Message: "fixture already exists"}
	ErrNamespaceNotFound  = &FixtureError{Kind: KindNamespaceNotFound, Code: ExitNamespaceNotFound, Message: "namespace not found"}
)

// FixtureError is the base error type for fixture-ctl
type FixtureError struct {
	Kind        Kind
	Code        int
	Message     string
	Remediation []string
	Cause       error
}

func (e *FixtureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FixtureError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *FixtureError) Is(target error) bool {
	t, ok := target.(*FixtureError)
	if !ok {
		return false
	}
	return t == sentinelFor(e.Kind)
}

// ExitCode returns the exit code for this error
func (e *FixtureError) ExitCode() int {
	return e.Code
}

// Guidance renders the diagnosis and remediation steps for display.
func (e *FixtureError) Guidance() string {
	var sb strings.Builder
	sb.WriteString("What went wrong:\n")
	sb.WriteString("  " + e.Error() + "\n")
	if len(e.Remediation) == 0 {
		return sb.String()
	}
	sb.WriteString("\nHow to fix it:\n")
	for i, step := range e.Remediation {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
	}
	return sb.String()
}

// WithRemediation appends remediation steps and returns the error.
func (e *FixtureError) WithRemediation(steps ...string) *FixtureError {
	e.Remediation = append(e.Remediation, steps...)
	return e
}

func sentinelFor(kind Kind) *FixtureError {
	switch kind {
	case KindManifestNotFound:
		return ErrManifestNotFound
	case KindValidation:
		return ErrValidation
	case KindChecksumMismatch:
		return ErrChecksumMismatch
	case KindCreate:
		return ErrCreate
	case KindLoad:
		return ErrLoad
	case KindNamespaceCollision:
		return ErrNamespaceCollision
	case KindConfig:
		return ErrConfig
	case KindFixtureExists:
		return ErrFixtureExists
	case KindNamespaceNotFound:
		return ErrNamespaceNotFound
	default:
		return nil
	}
}

// New creates a new FixtureError
func New(kind Kind, code int, message string) *FixtureError {
	return &FixtureError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FixtureError
func Wrap(kind Kind, code int, message string, cause error) *FixtureError {
	return &FixtureError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// ManifestNotFound returns an error for a fixture directory without manifest.json
func ManifestNotFound(path string) *FixtureError {
	return New(KindManifestNotFound, ExitManifestNotFound, fmt.Sprintf("manifest not found: %s", path)).
		WithRemediation(
			"Verify the fixture path is correct",
			"Re-create the fixture with: fixture-ctl create <namespace> <output-dir>",
			"Restore manifest.json from version control or manifest.json.backup",
		)
}

// ValidationFailed returns an error summarising structural validation problems
func ValidationFailed(fixtureDir string, problems []string) *FixtureError {
	msg := fmt.Sprintf("fixture %s is invalid", fixtureDir)
	if len(problems) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(problems, "; "))
	}
	return New(KindValidation, ExitValidationFailed, msg).
		WithRemediation(
			"Run: fixture-ctl validate "+fixtureDir+" to see every finding",
			"Fix the manifest fields listed above or re-create the fixture",
		)
}

// ChecksumMismatch returns an error for a snapshot that does not match its manifest
func ChecksumMismatch(snapshotPath, expected, actual string) *FixtureError {
	return New(KindChecksumMismatch, ExitChecksumMismatch,
		fmt.Sprintf("checksum mismatch for %s: manifest has %s, file has %s", snapshotPath, expected, actual)).
		WithRemediation(
			"Restore the snapshot file from version control",
			"If the source data changed on purpose, run: fixture-ctl checksum --write <fixture-dir>",
			"Otherwise re-create the fixture from its source namespace",
		)
}

// CreateFailed returns an error for export/backup failures
func CreateFailed(message string, cause error) *FixtureError {
	return Wrap(KindCreate, ExitCreateFailed, message, cause)
}

// LoadFailed returns an error for mount/restore/verification failures
func LoadFailed(message string, cause error) *FixtureError {
	return Wrap(KindLoad, ExitLoadFailed, message, cause)
}

// NamespaceCollision returns an error when the load target is already occupied
func NamespaceCollision(namespace string) *FixtureError {
	return New(KindNamespaceCollision, ExitNamespaceCollision,
		fmt.Sprintf("target namespace %s already exists", namespace)).
		WithRemediation(
			"Choose a different target namespace with --namespace",
			"Remove it first: fixture-ctl cleanup --delete "+namespace,
			"Or replace it explicitly with --overwrite",
		)
}

// NamespaceNotFound returns an error for a missing source namespace
func NamespaceNotFound(namespace string) *FixtureError {
	return New(KindNamespaceNotFound, ExitNamespaceNotFound,
		fmt.Sprintf("namespace %s does not exist", namespace)).
		WithRemediation(
			"Verify the namespace name spelling",
			"Create and populate the namespace before exporting it",
		)
}

// FixtureExists returns an error when the output directory is already present
func FixtureExists(dir string) *FixtureError {
	return New(KindFixtureExists, ExitFixtureExists,
		fmt.Sprintf("fixture directory already exists: %s", dir)).
		WithRemediation(
			"Delete the existing fixture: rm -rf "+dir,
			"Choose a different output path",
			"Use fixture-ctl refresh to update the existing fixture",
		)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *FixtureError {
	return Wrap(KindConfig, ExitConfigError, message, cause)
}

// InvalidArgument returns an error for input validation failures
func InvalidArgument(message string) *FixtureError {
	return New(KindGeneral, ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var fixErr *FixtureError
	if errors.As(err, &fixErr) {
		return fixErr.ExitCode()
	}
	return ExitGeneralError
}

// GuidanceFor returns the rendered guidance for err, or its plain message
// when it is not a FixtureError.
func GuidanceFor(err error) string {
	var fixErr *FixtureError
	if errors.As(err, &fixErr) {
		return fixErr.Guidance()
	}
	return err.Error()
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join combines errors, as errors.Join does.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
