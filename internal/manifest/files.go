package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Path returns the manifest path inside a fixture directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// ArchivePath returns the archived manifest path inside a fixture directory.
func ArchivePath(dir string) string {
	return filepath.Join(dir, ArchiveName)
}

// Read loads and parses the manifest in dir without a schema check.
// A missing file is reported with an error satisfying os.IsNotExist.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Write stores m as dir/manifest.json. Readers observe either the previous
// manifest or the new one, never a partial file.
func Write(dir string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	return WriteFileAtomic(Path(dir), data, 0644)
}

// Archive copies the current manifest to manifest.json.backup, replacing
// any earlier archive. It is a no-op when dir has no manifest.
func Archive(dir string) error {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read manifest for archive: %w", err)
	}
	if err := WriteFileAtomic(ArchivePath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to archive manifest: %w", err)
	}
	return nil
}

// RestoreArchive puts the archived manifest back in place.
func RestoreArchive(dir string) error {
	data, err := os.ReadFile(ArchivePath(dir))
	if err != nil {
		return fmt.Errorf("failed to read archived manifest: %w", err)
	}
	return WriteFileAtomic(Path(dir), data, 0644)
}

// SnapshotPath resolves the manifest's snapshot_file inside dir.
// Absolute paths and paths that climb out of dir are rejected, and symlinks
// are resolved without leaving dir.
func SnapshotPath(dir string, m *Manifest) (string, error) {
	return ResolveSnapshot(dir, m.SnapshotFile)
}

// ResolveSnapshot is SnapshotPath for a bare file name.
func ResolveSnapshot(dir, name string) (string, error) {
	if err := CheckSnapshotFile(name); err != nil {
		return "", err
	}
	p, err := securejoin.SecureJoin(dir, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve snapshot_file %q: %w", name, err)
	}
	return p, nil
}

// CheckSnapshotFile applies the lexical rules for snapshot_file.
func CheckSnapshotFile(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("snapshot_file is empty")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return fmt.Errorf("snapshot_file %q must be relative to the fixture directory", name)
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("snapshot_file %q escapes the fixture directory", name)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
