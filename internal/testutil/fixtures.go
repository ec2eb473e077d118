package testutil

import (
	"embed"

	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

//go:embed fixtures/*.json
var fixturesFS embed.FS

// LoadFixture loads a JSON fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadManifestFixture loads and decodes a manifest fixture.
func LoadManifestFixture(name string) (*manifest.Manifest, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return manifest.Unmarshal(data)
}

// ValidManifest returns the valid manifest fixture.
func ValidManifest() (*manifest.Manifest, error) {
	return LoadManifestFixture("valid_manifest.json")
}

// InvalidManifestData returns the raw invalid manifest fixture. It is
// returned undecoded because its problems are reported by the validator.
func InvalidManifestData() ([]byte, error) {
	return LoadFixture("invalid_manifest.json")
}
