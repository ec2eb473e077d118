package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const testChecksum = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

func sampleManifest() *Manifest {
	expected := int64(3)
	return &Manifest{
		FixtureID:     "test-100",
		Version:       "1.0.0",
		SchemaVersion: CurrentSchemaVersion,
		Description:   "hundred row fixture",
		CreatedAt:     "2026-01-02T03:04:05Z",
		EngineVersion: "3.46.0",
		Namespace:     "USER",
		SnapshotFile:  DefaultSnapshotFile,
		Checksum:      testChecksum,
		Tables: []TableInfo{
			{Name: "patients", RowCount: 100},
			{Name: "visits", RowCount: 250},
		},
		Features: map[string]any{
			"seeded":  true,
			"size":    int64(100),
			"ratio":   0.5,
			"regions": []any{"eu", "us"},
		},
		KnownQueries: []KnownQuery{
			{Name: "adults", Query: "SELECT * FROM patients WHERE age >= 18", ExpectedRows: &expected},
		},
	}
}

func TestMarshal_Format(t *testing.T) {
	data, err := Marshal(sampleManifest())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	text := string(data)
	if !strings.HasSuffix(text, "}\n") {
		t.Errorf("Marshal() should end with a newline, got %q", text[len(text)-3:])
	}
	if !strings.Contains(text, "\n  \"fixture_id\": \"test-100\"") {
		t.Errorf("Marshal() should use two-space indentation:\n%s", text)
	}
	for _, key := range []string{"schema_version", "snapshot_file", "row_count", "created_at", "engine_version", "known_queries"} {
		if !strings.Contains(text, "\""+key+"\"") {
			t.Errorf("Marshal() missing key %q", key)
		}
	}
}

func TestMarshal_OmitsEmptyOptionalFields(t *testing.T) {
	m := &Manifest{
		FixtureID:     "bare",
		Version:       "1.0.0",
		SchemaVersion: CurrentSchemaVersion,
		Namespace:     "NS",
		SnapshotFile:  "snapshot.dat",
		Checksum:      testChecksum,
	}

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	text := string(data)
	for _, key := range []string{"description", "created_at", "engine_version", "features", "known_queries"} {
		if strings.Contains(text, "\""+key+"\"") {
			t.Errorf("Marshal() should omit empty %q:\n%s", key, text)
		}
	}
	if !strings.Contains(text, "\"tables\": []") {
		t.Errorf("Marshal() should always emit tables:\n%s", text)
	}
}

func TestMarshal_Nil(t *testing.T) {
	if _, err := Marshal(nil); err == nil {
		t.Error("Marshal(nil) should fail")
	}
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	original := sampleManifest()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", decoded, original)
	}
}

func TestManifestRoundTrip_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("unmarshal(marshal(m)) equals m", prop.ForAll(
		func(id, ns, description string, tables []string, rows int64) bool {
			m := &Manifest{
				FixtureID:     id,
				Version:       DefaultVersion,
				SchemaVersion: CurrentSchemaVersion,
				Description:   description,
				Namespace:     ns,
				SnapshotFile:  DefaultSnapshotFile,
				Checksum:      testChecksum,
				Tables:        make([]TableInfo, len(tables)),
			}
			for i, name := range tables {
				m.Tables[i] = TableInfo{Name: name, RowCount: rows + int64(i)}
			}

			data, err := Marshal(m)
			if err != nil {
				return false
			}
			decoded, err := Unmarshal(data)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(decoded, m)
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString(),
		gen.SliceOf(gen.Identifier()),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}

func TestDecode_SchemaVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"current", "1.0", false},
		{"future", "2.0", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleManifest()
			m.SchemaVersion = tt.version
			data, err := Marshal(m)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}

			_, err = Decode(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("Unmarshal() should fail on invalid JSON")
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "complete",
			data: `{"fixture_id":"a","version":"1","schema_version":"1.0","namespace":"N","snapshot_file":"s","checksum":"c","tables":[]}`,
			want: nil,
		},
		{
			name: "missing checksum",
			data: `{"fixture_id":"a","version":"1","schema_version":"1.0","namespace":"N","snapshot_file":"s","tables":[]}`,
			want: []string{"checksum"},
		},
		{
			name: "null tables",
			data: `{"fixture_id":"a","version":"1","schema_version":"1.0","namespace":"N","snapshot_file":"s","checksum":"c","tables":null}`,
			want: []string{"tables"},
		},
		{
			name: "empty object",
			data: `{}`,
			want: RequiredFields,
		},
		{
			name: "not an object",
			data: `[1,2]`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingFields([]byte(tt.data))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClone_Independent(t *testing.T) {
	original := sampleManifest()
	c := original.Clone()

	c.Tables[0].RowCount = 1
	*c.KnownQueries[0].ExpectedRows = 99
	c.Features["regions"].([]any)[0] = "apac"

	if original.Tables[0].RowCount != 100 {
		t.Error("Clone() shares tables")
	}
	if *original.KnownQueries[0].ExpectedRows != 3 {
		t.Error("Clone() shares known query counts")
	}
	if original.Features["regions"].([]any)[0] != "eu" {
		t.Error("Clone() shares nested features")
	}
}

func TestManifest_Helpers(t *testing.T) {
	m := sampleManifest()

	if got := m.TableNames(); !reflect.DeepEqual(got, []string{"patients", "visits"}) {
		t.Errorf("TableNames() = %v", got)
	}
	if got := m.TotalRows(); got != 350 {
		t.Errorf("TotalRows() = %d, want 350", got)
	}
	if tbl, ok := m.Table("visits"); !ok || tbl.RowCount != 250 {
		t.Errorf("Table(visits) = %v, %v", tbl, ok)
	}
	if _, ok := m.Table("missing"); ok {
		t.Error("Table(missing) should not be found")
	}
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()

	if err := Write(dir, m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("Read() = %#v, want %#v", got, m)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("Write() left extra files: %v", names)
	}
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(t.TempDir())
	if !os.IsNotExist(err) {
		t.Errorf("Read() error = %v, want not-exist", err)
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()

	if err := Archive(dir); err != nil {
		t.Fatalf("Archive() without manifest should be a no-op: %v", err)
	}
	if _, err := os.Stat(ArchivePath(dir)); !os.IsNotExist(err) {
		t.Error("Archive() created a backup without a manifest")
	}

	m := sampleManifest()
	if err := Write(dir, m); err != nil {
		t.Fatal(err)
	}
	if err := Archive(dir); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	m.Checksum = "sha256:" + strings.Repeat("f", 64)
	if err := Write(dir, m); err != nil {
		t.Fatal(err)
	}

	archived, err := os.ReadFile(ArchivePath(dir))
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if !strings.Contains(string(archived), testChecksum) {
		t.Error("archive should hold the previous checksum")
	}

	if err := RestoreArchive(dir); err != nil {
		t.Fatalf("RestoreArchive() error: %v", err)
	}
	restored, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Checksum != testChecksum {
		t.Errorf("restored checksum = %q, want %q", restored.Checksum, testChecksum)
	}
}

func TestSnapshotPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{"plain", "snapshot.dat", filepath.Join(dir, "snapshot.dat"), false},
		{"nested", "data/snapshot.dat", filepath.Join(dir, "data", "snapshot.dat"), false},
		{"absolute", "/etc/passwd", "", true},
		{"parent", "../other/snapshot.dat", "", true},
		{"dotdot", "..", "", true},
		{"empty", "", "", true},
		{"current dir", ".", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SnapshotPath(dir, &Manifest{SnapshotFile: tt.file})
			if (err != nil) != tt.wantErr {
				t.Fatalf("SnapshotPath(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SnapshotPath(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestSnapshotPath_SymlinkStaysInside(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := SnapshotPath(dir, &Manifest{SnapshotFile: "link/snapshot.dat"})
	if err != nil {
		t.Fatalf("SnapshotPath() error: %v", err)
	}
	if strings.HasPrefix(got, outside) {
		t.Errorf("SnapshotPath() = %q escaped to %q", got, outside)
	}
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")

	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file.json")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("WriteFileAtomic() into a missing directory should fail")
	}
}
