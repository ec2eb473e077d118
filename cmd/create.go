package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
)

var createCmd = &cobra.Command{
	Use:   "create <namespace> <output-dir>",
	Short: "Capture a namespace as a new fixture",
	Long: `Backs up a database namespace into a new fixture directory and writes
its manifest with table row counts and the snapshot checksum.

The output directory must not exist. A bare name is created under the
configured fixtures directory. On any failure nothing is left behind.`,
	Example: `  fixture-ctl create CLINIC patients-100
  fixture-ctl create CLINIC ./fixtures/patients --id patients-100 \
      --description "100 patients" --feature anonymized=true`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

var (
	createID           string
	createDescription  string
	createVersion      string
	createSnapshotFile string
	createFeatures     []string
)

func init() {
	createCmd.Flags().StringVar(&createID, "id", "", "Fixture id (default: output directory name)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Human-readable description")
	createCmd.Flags().StringVar(&createVersion, "version", "", "Fixture version (default: 1.0.0)")
	createCmd.Flags().StringVar(&createSnapshotFile, "snapshot-file", "", "Snapshot file name (default: snapshot.dat)")
	createCmd.Flags().StringArrayVar(&createFeatures, "feature", nil, "Feature flag as key=value (repeatable)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ns, outputDir := args[0], args[1]

	if !filepath.IsAbs(outputDir) && filepath.Base(outputDir) == outputDir {
		outputDir = filepath.Join(paths().FixturesDir, outputDir)
	}

	id := createID
	if id == "" {
		id = filepath.Base(outputDir)
	}

	features, err := parseFeatures(createFeatures)
	if err != nil {
		return err
	}

	creator, err := app.Default.Creator()
	if err != nil {
		return err
	}

	logging.Debug("creating fixture", "id", id, "namespace", ns, "output", outputDir)

	res, err := creator.Create(cmd.Context(), fixture.CreateOptions{
		FixtureID:    id,
		Namespace:    ns,
		OutputDir:    outputDir,
		SnapshotFile: createSnapshotFile,
		Description:  createDescription,
		Version:      createVersion,
		Features:     features,
	})
	if err != nil {
		app.Default.Record(audit.EventError, id, ns, "create: "+err.Error())
		return err
	}

	m := res.Manifest
	app.Default.Record(audit.EventCreate, m.FixtureID, ns,
		fmt.Sprintf("tables=%d rows=%d checksum=%s", len(m.Tables), m.TotalRows(), m.Checksum))

	for _, w := range res.Warnings {
		logWarning("%s", w)
	}
	logSuccess("Created fixture %s from %s (%d tables, %d rows, %.2fs)",
		m.FixtureID, ns, len(m.Tables), m.TotalRows(), res.ElapsedSeconds)
	logInfo("Directory: %s", res.FixtureDir)
	logInfo("Checksum:  %s", m.Checksum)

	return nil
}
