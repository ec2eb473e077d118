package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/fixture"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive fixture picker",
	Long: `Opens an interactive TUI for browsing fixtures in the fixtures directory.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Show the validation report for the selected fixture
  l      - Load the selected fixture (prompts for the target namespace)
  q/Esc  - Quit`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	logging.Debug("picker mode started")

	entries, err := collectEntries(paths().FixturesDir)
	if err != nil {
		return fmt.Errorf("failed to list fixtures: %w", err)
	}

	if len(entries) == 0 {
		logInfo("No fixtures found. Create one with: fixture-ctl create <namespace> <output-dir>")
		return nil
	}

	result, err := tui.RunPicker(entries)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action)

	switch result.Action {
	case tui.ActionValidate:
		if result.Fixture != nil {
			r := app.Default.Validator.ValidateFixture(result.Fixture.Dir)
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(r, true))
			recordValidation(r)
			return r.Err()
		}

	case tui.ActionLoad:
		if result.Fixture != nil {
			cfg := app.Default.Config.Load
			policy := fixture.RowCountPolicy{Verify: cfg.VerifyRowCounts, Tolerance: cfg.RowCountTolerance}
			return loadFixture(cmd.Context(), result.Fixture.Dir, result.Namespace, cfg.Overwrite, policy)
		}

	case tui.ActionQuit:
		// Just exit cleanly
	}

	return nil
}
