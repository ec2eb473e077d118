package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

var loadCmd = &cobra.Command{
	Use:   "load <fixture-dir>",
	Short: "Load a fixture into a namespace",
	Long: `Validates the fixture, mounts its snapshot into the target namespace
and verifies the loaded tables against the manifest.

A load is all-or-nothing: if mounting or verification fails, the target
namespace is dropped again. An existing target namespace is an error
unless --overwrite is given.`,
	Example: `  fixture-ctl load patients-100
  fixture-ctl load ./fixtures/patients-100 --namespace TEST_1 --overwrite
  fixture-ctl load patients-100 --tolerance 0.05`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

var (
	loadNamespace     string
	loadOverwrite     bool
	loadTolerance     float64
	loadSkipRowCounts bool
)

func init() {
	loadCmd.Flags().StringVarP(&loadNamespace, "namespace", "n", "", "Target namespace (default: the manifest's namespace)")
	loadCmd.Flags().BoolVar(&loadOverwrite, "overwrite", false, "Replace an existing target namespace")
	loadCmd.Flags().Float64Var(&loadTolerance, "tolerance", 0, "Allowed relative row count drift, e.g. 0.05")
	loadCmd.Flags().BoolVar(&loadSkipRowCounts, "skip-row-counts", false, "Only check that tables exist")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := app.Default.Config.Load

	policy := fixture.RowCountPolicy{
		Verify:    cfg.VerifyRowCounts && !loadSkipRowCounts,
		Tolerance: cfg.RowCountTolerance,
	}
	if cmd.Flags().Changed("tolerance") {
		policy.Tolerance = loadTolerance
	}

	return loadFixture(cmd.Context(), fixtureDir(args[0]), loadNamespace, loadOverwrite || cfg.Overwrite, policy)
}

// loadFixture runs a load and reports it. Shared by load and pick.
func loadFixture(ctx context.Context, dir, ns string, overwrite bool, policy fixture.RowCountPolicy) error {
	loader, err := app.Default.Loader()
	if err != nil {
		return err
	}

	res, err := loader.Load(ctx, fixture.LoadOptions{
		FixtureDir:      dir,
		TargetNamespace: ns,
		Overwrite:       overwrite,
		RowCounts:       &policy,
	})
	if err != nil {
		if m, rerr := manifest.Read(dir); rerr == nil {
			app.Default.Record(audit.EventError, m.FixtureID, ns, "load: "+err.Error())
		}
		return err
	}

	m := res.Manifest
	app.Default.Record(audit.EventLoad, m.FixtureID, res.TargetNamespace,
		fmt.Sprintf("operation=%s tables=%d", res.OperationID, len(res.TablesLoaded)))

	for _, w := range res.Warnings {
		logWarning("%s", w)
	}
	logSuccess("Loaded fixture %s into %s (%d tables, %.2fs)",
		m.FixtureID, res.TargetNamespace, len(res.TablesLoaded), res.ElapsedSeconds)
	logInfo("Tables: %s", strings.Join(res.TablesLoaded, ", "))

	return nil
}
