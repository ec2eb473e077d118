package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <fixture-dir>",
	Short: "Re-capture an existing fixture from its namespace",
	Long: `Takes a fresh backup of the fixture's source namespace (or --namespace)
and rewrites the snapshot, checksum and row counts. The previous manifest
is kept as manifest.json.backup and restored if the refresh fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

var refreshNamespace string

func init() {
	refreshCmd.Flags().StringVarP(&refreshNamespace, "namespace", "n", "", "Source namespace (default: the manifest's namespace)")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	dir := fixtureDir(args[0])

	creator, err := app.Default.Creator()
	if err != nil {
		return err
	}

	res, err := creator.Refresh(cmd.Context(), fixture.RefreshOptions{
		FixtureDir: dir,
		Namespace:  refreshNamespace,
	})
	if err != nil {
		if prev, rerr := manifest.Read(dir); rerr == nil {
			app.Default.Record(audit.EventError, prev.FixtureID, refreshNamespace, "refresh: "+err.Error())
		}
		return err
	}

	m := res.Manifest
	app.Default.Record(audit.EventRefresh, m.FixtureID, m.Namespace,
		fmt.Sprintf("tables=%d rows=%d checksum=%s", len(m.Tables), m.TotalRows(), m.Checksum))

	for _, w := range res.Warnings {
		logWarning("%s", w)
	}
	logSuccess("Refreshed fixture %s from %s (%d tables, %d rows, %.2fs)",
		m.FixtureID, m.Namespace, len(m.Tables), m.TotalRows(), res.ElapsedSeconds)
	logInfo("Checksum: %s", m.Checksum)

	return nil
}
