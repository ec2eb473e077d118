package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <namespace>",
	Short: "Unmount or drop a loaded namespace",
	Long: `Removes the data a load put into a namespace. By default the tables are
unmounted and the namespace kept; --delete drops the namespace entirely.
Cleaning up a namespace that does not exist succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

var (
	cleanupDelete  bool
	cleanupFixture string
)

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDelete, "delete", false, "Drop the namespace instead of unmounting it")
	cleanupCmd.Flags().StringVar(&cleanupFixture, "fixture", "", "Record the cleanup in this fixture's event log")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ns := args[0]

	loader, err := app.Default.Loader()
	if err != nil {
		return err
	}

	if err := loader.Cleanup(cmd.Context(), ns, cleanupDelete); err != nil {
		return err
	}

	action := "unmounted"
	if cleanupDelete {
		action = "dropped"
	}
	app.Default.Record(audit.EventCleanup, cleanupFixture, ns, action)
	logSuccess("Namespace %s %s", ns, action)

	return nil
}
