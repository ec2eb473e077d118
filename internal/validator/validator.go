package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

// ChunkSize is the read size used when hashing snapshot files.
const ChunkSize = 1 << 20

// FixtureValidator validates a fixture directory. *Validator and
// *CachedValidator both satisfy it.
type FixtureValidator interface {
	ValidateFixture(dir string) *ValidationResult
}

// Validator checks fixture integrity and manifest structure.
// The zero value is ready to use and safe for concurrent use.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// CalculateChecksum streams the file at path and returns "sha256:<hex>".
func (v *Validator) CalculateChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return manifest.ChecksumPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ValidateChecksum reports whether the file at path hashes to expected.
// A mismatch is (false, nil); only I/O failures return an error.
func (v *Validator) ValidateChecksum(path, expected string) (bool, error) {
	actual, err := v.CalculateChecksum(path)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// ValidateManifest checks the manifest's structure without touching the
// filesystem and reports every violation it finds.
func (v *Validator) ValidateManifest(m *manifest.Manifest) *ValidationResult {
	r := newResult("")
	if m == nil {
		r.addError(CodeManifestParse, "manifest is empty")
		return r.finish(nil)
	}

	required := []struct {
		name  string
		value string
	}{
		{"fixture_id", m.FixtureID},
		{"version", m.Version},
		{"schema_version", m.SchemaVersion},
		{"namespace", m.Namespace},
		{"snapshot_file", m.SnapshotFile},
		{"checksum", m.Checksum},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			r.addError(CodeMissingField, "missing required field: %s", f.name)
		}
	}
	if m.Tables == nil {
		r.addError(CodeMissingField, "missing required field: tables")
	}

	if m.Checksum != "" && !manifest.ChecksumPattern.MatchString(m.Checksum) {
		r.addError(CodeChecksumFormat, "invalid checksum format %q: expected sha256: followed by 64 lowercase hex characters", m.Checksum)
	}

	if m.SchemaVersion != "" && !manifest.IsSupportedSchemaVersion(m.SchemaVersion) {
		r.addError(CodeSchemaVersion, "unsupported schema_version %q (supported: %s)",
			m.SchemaVersion, strings.Join(manifest.SupportedSchemaVersions, ", "))
	}

	if m.SnapshotFile != "" {
		if err := manifest.CheckSnapshotFile(m.SnapshotFile); err != nil {
			r.addError(CodeSnapshotPath, "invalid snapshot_file: %v", err)
		}
	}

	seen := make(map[string]bool, len(m.Tables))
	for i, t := range m.Tables {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			r.addError(CodeTable, "table %d has an empty name", i+1)
		case seen[name]:
			r.addError(CodeTable, "duplicate table name: %s", name)
		}
		seen[name] = true
		if t.RowCount < 0 {
			r.addError(CodeTable, "table %s has a negative row_count (%d)", t.Name, t.RowCount)
		}
	}
	if m.Tables != nil && len(m.Tables) == 0 {
		r.addWarning(CodeTable, "manifest lists no tables")
	}

	if m.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, m.CreatedAt); err != nil {
			r.addWarning(CodeCreatedAt, "created_at %q is not an RFC 3339 timestamp", m.CreatedAt)
		}
	}

	for _, q := range m.KnownQueries {
		if strings.TrimSpace(q.Query) == "" {
			r.addWarning(CodeKnownQuery, "known query %q has no query text", q.Name)
		}
	}

	return r.finish(m)
}

// ValidateFixture runs the full pipeline on a fixture directory: manifest
// parse, structural checks, snapshot existence and checksum. Findings from
// every stage are aggregated into one result.
func (v *Validator) ValidateFixture(dir string) *ValidationResult {
	r := newResult(dir)
	path := manifest.Path(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.addError(CodeManifestMissing, "manifest not found: %s", path)
		} else {
			r.addError(CodeManifestUnreadable, "failed to read manifest %s: %v", path, err)
		}
		return r.finish(nil)
	}

	m, err := manifest.Unmarshal(data)
	if err != nil {
		r.addError(CodeManifestParse, "invalid manifest JSON in %s: %v", path, err)
		return r.finish(nil)
	}

	for _, field := range manifest.MissingFields(data) {
		r.addError(CodeMissingField, "missing required field: %s", field)
	}
	r.merge(v.ValidateManifest(m))

	v.checkSnapshot(r, dir, m)

	logging.Debug("validated fixture", "dir", dir, "valid", len(r.Errors) == 0,
		"errors", len(r.Errors), "warnings", len(r.Warnings))
	return r.finish(m)
}

func (v *Validator) checkSnapshot(r *ValidationResult, dir string, m *manifest.Manifest) {
	if m.SnapshotFile == "" {
		return
	}
	snapshot, err := manifest.SnapshotPath(dir, m)
	if err != nil {
		// Lexical errors dedupe against ValidateManifest.
		r.addError(CodeSnapshotPath, "invalid snapshot_file: %v", err)
		return
	}
	r.SnapshotPath = snapshot

	info, err := os.Stat(snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			r.addError(CodeSnapshotMissing, "snapshot file not found: %s", snapshot)
		} else {
			r.addError(CodeChecksumIO, "failed to stat snapshot %s: %v", snapshot, err)
		}
		return
	}
	if info.IsDir() {
		r.addError(CodeSnapshotMissing, "snapshot path is a directory: %s", snapshot)
		return
	}

	if !manifest.ChecksumPattern.MatchString(m.Checksum) {
		return
	}
	actual, err := v.CalculateChecksum(snapshot)
	if err != nil {
		r.addError(CodeChecksumIO, "failed to checksum snapshot: %v", err)
		return
	}
	r.ExpectedChecksum = m.Checksum
	r.ActualChecksum = actual
	if actual != m.Checksum {
		r.addError(CodeChecksumMismatch, "checksum mismatch for %s: manifest has %s, file has %s",
			snapshot, m.Checksum, actual)
	}
}

// RecalculateChecksum archives the current manifest, recomputes the
// snapshot checksum and writes the updated manifest. It is meant for
// fixtures whose source data changed on purpose.
func (v *Validator) RecalculateChecksum(dir string) (*manifest.Manifest, error) {
	m, err := manifest.Read(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fixerrors.ManifestNotFound(manifest.Path(dir))
		}
		return nil, fixerrors.ValidationFailed(dir, []string{err.Error()})
	}

	snapshot, err := manifest.SnapshotPath(dir, m)
	if err != nil {
		return nil, fixerrors.ValidationFailed(dir, []string{err.Error()})
	}
	if _, err := os.Stat(snapshot); err != nil {
		return nil, fixerrors.ValidationFailed(dir, []string{fmt.Sprintf("snapshot file not found: %s", snapshot)})
	}

	checksum, err := v.CalculateChecksum(snapshot)
	if err != nil {
		return nil, err
	}

	if err := manifest.Archive(dir); err != nil {
		return nil, err
	}

	previous := m.Checksum
	m.Checksum = checksum
	if err := manifest.Write(dir, m); err != nil {
		return nil, err
	}

	logging.Debug("recalculated checksum", "dir", dir, "previous", previous, "checksum", checksum)
	return m, nil
}
