package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	"github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/tui"
)

// paths returns the configured paths.
// This is a helper to reduce repetition in commands.
func paths() *config.Paths {
	return app.Default.Paths
}

// fixtureDir resolves a command argument naming a fixture, either as a path
// or as an id under the fixtures directory.
func fixtureDir(arg string) string {
	return paths().ResolveFixtureDir(arg)
}

// collectEntries validates every fixture below dir for list and pick.
func collectEntries(dir string) ([]*tui.Entry, error) {
	dirs, err := config.ListFixtureDirs(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]*tui.Entry, 0, len(dirs))
	for _, d := range dirs {
		r := app.Default.Validator.ValidateFixture(d)
		entries = append(entries, tui.EntryFromResult(d, r))
	}
	return entries, nil
}

// parseFeatures turns repeated key=value flags into manifest features.
// Booleans and numbers keep their JSON types.
func parseFeatures(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	features := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.InvalidArgument(fmt.Sprintf("invalid feature %q: expected key=value", pair))
		}
		features[key] = featureValue(value)
	}
	return features, nil
}

func featureValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
