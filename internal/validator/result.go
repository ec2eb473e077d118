package validator

import (
	"fmt"

	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the kind of problem a finding reports.
type Code string

const (
	CodeManifestMissing    Code = "manifest_missing"
	CodeManifestUnreadable Code = "manifest_unreadable"
	CodeManifestParse      Code = "manifest_parse"
	CodeMissingField       Code = "missing_field"
	CodeChecksumFormat     Code = "checksum_format"
	CodeSchemaVersion      Code = "schema_version"
	CodeSnapshotPath       Code = "snapshot_path"
	CodeTable              Code = "table"
	CodeSnapshotMissing    Code = "snapshot_missing"
	CodeChecksumMismatch   Code = "checksum_mismatch"
	CodeChecksumIO         Code = "checksum_io"
	CodeCreatedAt          Code = "created_at"
	CodeKnownQuery         Code = "known_query"
)

// Finding is one problem discovered during validation.
type Finding struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult aggregates every finding from one validation pass.
// Manifest is set only when Valid is true.
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Errors   []string           `json:"errors"`
	Warnings []string           `json:"warnings"`
	Manifest *manifest.Manifest `json:"manifest,omitempty"`
	Findings []Finding          `json:"findings"`

	FixtureDir       string `json:"fixture_dir,omitempty"`
	SnapshotPath     string `json:"snapshot_path,omitempty"`
	ExpectedChecksum string `json:"expected_checksum,omitempty"`
	ActualChecksum   string `json:"actual_checksum,omitempty"`
}

func newResult(dir string) *ValidationResult {
	return &ValidationResult{
		FixtureDir: dir,
		Errors:     []string{},
		Warnings:   []string{},
		Findings:   []Finding{},
	}
}

func (r *ValidationResult) add(code Code, severity Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	for _, f := range r.Findings {
		if f.Code == code && f.Message == msg {
			return
		}
	}
	r.Findings = append(r.Findings, Finding{Code: code, Message: msg, Severity: severity})
	if severity == SeverityError {
		r.Errors = append(r.Errors, msg)
	} else {
		r.Warnings = append(r.Warnings, msg)
	}
}

func (r *ValidationResult) addError(code Code, format string, args ...any) {
	r.add(code, SeverityError, format, args...)
}

func (r *ValidationResult) addWarning(code Code, format string, args ...any) {
	r.add(code, SeverityWarning, format, args...)
}

func (r *ValidationResult) merge(other *ValidationResult) {
	for _, f := range other.Findings {
		r.add(f.Code, f.Severity, "%s", f.Message)
	}
}

func (r *ValidationResult) finish(m *manifest.Manifest) *ValidationResult {
	r.Valid = len(r.Errors) == 0
	if r.Valid {
		r.Manifest = m
	} else {
		r.Manifest = nil
	}
	return r
}

// HasCode reports whether any finding carries code.
func (r *ValidationResult) HasCode(code Code) bool {
	for _, f := range r.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

// FindingsFor returns the findings with the given code.
func (r *ValidationResult) FindingsFor(code Code) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// Err converts an invalid result into a typed error. A checksum mismatch
// wins over a missing manifest, which wins over generic validation errors.
// It returns nil for a valid result.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	switch {
	case r.HasCode(CodeChecksumMismatch):
		return fixerrors.ChecksumMismatch(r.SnapshotPath, r.ExpectedChecksum, r.ActualChecksum)
	case r.HasCode(CodeManifestMissing):
		return fixerrors.ManifestNotFound(manifest.Path(r.FixtureDir))
	default:
		return fixerrors.ValidationFailed(r.FixtureDir, r.Errors)
	}
}
