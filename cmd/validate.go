package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/tui"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <fixture-dir>",
	Short: "Check a fixture's manifest, snapshot and checksum",
	Long: `Runs every structural and integrity check on a fixture and reports all
problems at once. Exits with 3 for structural problems, 4 for a checksum
mismatch and 2 when the manifest is missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateNoColor bool

func init() {
	validateCmd.Flags().BoolVar(&validateNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := fixtureDir(args[0])

	r := app.Default.Validator.ValidateFixture(dir)
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(r, !validateNoColor))

	recordValidation(r)
	return r.Err()
}

// recordValidation logs a validation to the fixture's event log. Invalid
// fixtures are recorded too when their manifest can still be read.
func recordValidation(r *validator.ValidationResult) {
	m := r.Manifest
	if m == nil {
		var err error
		if m, err = manifest.Read(r.FixtureDir); err != nil {
			return
		}
	}
	details := "valid"
	if !r.Valid {
		details = fmt.Sprintf("invalid errors=%d", len(r.Errors))
	}
	if r.HasCode(validator.CodeChecksumMismatch) {
		app.Default.Record(audit.EventChecksum, m.FixtureID, m.Namespace,
			fmt.Sprintf("mismatch expected=%s actual=%s", r.ExpectedChecksum, r.ActualChecksum))
	}
	app.Default.Record(audit.EventValidate, m.FixtureID, m.Namespace, details)
}
