package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

const (
	// FileName is the manifest file inside a fixture directory.
	FileName = "manifest.json"

	// ArchiveName holds the previous manifest after a refresh or checksum
	// recalculation.
	ArchiveName = "manifest.json.backup"

	// CurrentSchemaVersion is written by new fixtures.
	CurrentSchemaVersion = "1.0"

	// DefaultVersion is the fixture version used when none is given.
	DefaultVersion = "1.0.0"

	// DefaultSnapshotFile is the snapshot file name used when none is given.
	DefaultSnapshotFile = "snapshot.dat"

	// ChecksumPrefix marks the digest algorithm in Checksum.
	ChecksumPrefix = "sha256:"
)

// ChecksumPattern is the required format of Manifest.Checksum.
var ChecksumPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// SupportedSchemaVersions is the allow-list of manifest schema versions.
// Unknown versions are rejected rather than guessed at.
var SupportedSchemaVersions = []string{"1.0"}

// IsSupportedSchemaVersion reports whether v is in SupportedSchemaVersions.
func IsSupportedSchemaVersion(v string) bool {
	for _, s := range SupportedSchemaVersions {
		if s == v {
			return true
		}
	}
	return false
}

// RequiredFields lists the JSON keys every manifest must carry.
var RequiredFields = []string{
	"fixture_id",
	"version",
	"schema_version",
	"namespace",
	"snapshot_file",
	"checksum",
	"tables",
}

// TableInfo describes one table captured in a snapshot.
// RowCount is documentation used for post-load sanity checks,
// not a content hash.
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// KnownQuery is a query documented alongside a fixture, typically used by
// tests that rely on the fixture's contents.
type KnownQuery struct {
	Name         string `json:"name"`
	Query        string `json:"query"`
	ExpectedRows *int64 `json:"expected_rows,omitempty"`
}

// Manifest is the persisted description of one fixture.
type Manifest struct {
	FixtureID     string      `json:"fixture_id"`
	Version       string      `json:"version"`
	SchemaVersion string      `json:"schema_version"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     string      `json:"created_at,omitempty"`
	EngineVersion string      `json:"engine_version,omitempty"`
	Namespace     string      `json:"namespace"`
	SnapshotFile  string      `json:"snapshot_file"`
	Checksum      string      `json:"checksum"`
	Tables        []TableInfo `json:"tables"`

	Features     map[string]any `json:"features,omitempty"`
	KnownQueries []KnownQuery   `json:"known_queries,omitempty"`
}

// TableNames returns the table names in manifest order.
func (m *Manifest) TableNames() []string {
	names := make([]string, len(m.Tables))
	for i, t := range m.Tables {
		names[i] = t.Name
	}
	return names
}

// TotalRows returns the sum of all table row counts.
func (m *Manifest) TotalRows() int64 {
	var total int64
	for _, t := range m.Tables {
		total += t.RowCount
	}
	return total
}

// Table returns the entry for name, if present.
func (m *Manifest) Table(name string) (TableInfo, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableInfo{}, false
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	c := *m
	if m.Tables != nil {
		c.Tables = append([]TableInfo(nil), m.Tables...)
	}
	if m.KnownQueries != nil {
		c.KnownQueries = make([]KnownQuery, len(m.KnownQueries))
		for i, q := range m.KnownQueries {
			if q.ExpectedRows != nil {
				n := *q.ExpectedRows
				q.ExpectedRows = &n
			}
			c.KnownQueries[i] = q
		}
	}
	if m.Features != nil {
		c.Features = cloneValue(m.Features).(map[string]any)
	}
	return &c
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Marshal encodes a manifest in its on-disk form: two-space indentation
// and a trailing newline so the file diffs cleanly in version control.
func Marshal(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}
	if m.Tables == nil {
		// Always emit the required key.
		cp := *m
		cp.Tables = []TableInfo{}
		m = &cp
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal parses manifest JSON without checking the schema version.
// Structural problems are left to the validator so they can be reported
// together.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Features != nil {
		m.Features = normalizeNumbers(m.Features).(map[string]any)
	}
	return &m, nil
}

// Decode parses manifest JSON and rejects unsupported schema versions.
func Decode(data []byte) (*Manifest, error) {
	m, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if !IsSupportedSchemaVersion(m.SchemaVersion) {
		return nil, fmt.Errorf("unsupported schema_version %q (supported: %v)", m.SchemaVersion, SupportedSchemaVersions)
	}
	return m, nil
}

// MissingFields returns the required keys absent from raw manifest JSON.
// It returns nil when data is not a JSON object.
func MissingFields(data []byte) []string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var missing []string
	for _, field := range RequiredFields {
		v, ok := raw[field]
		if !ok || string(v) == "null" {
			missing = append(missing, field)
		}
	}
	return missing
}

// normalizeNumbers converts json.Number values produced by UseNumber back
// into int64 or float64 so features compare equal after a round trip.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}
