package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/tui"
)

var listCmd = &cobra.Command{
	Use:     "list [dir]",
	Aliases: []string{"ls"},
	Short:   "List fixtures and their validation status",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dir := paths().FixturesDir
	if len(args) == 1 {
		dir = args[0]
	}

	entries, err := collectEntries(dir)
	if err != nil {
		return fmt.Errorf("failed to list fixtures: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), tui.SimpleList(entries))
	return nil
}
