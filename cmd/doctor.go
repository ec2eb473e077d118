package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend, state directory and fixtures",
	Long: `Probes the configured namespace backend, checks that the state directory
is writable and validates every fixture in the fixtures directory.
Exits non-zero when no backend is available.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a := app.Default
	out := cmd.OutOrStdout()

	r := health.Check(cmd.Context(), health.CheckOptions{
		Backend:    a.Backend,
		BackendErr: a.BackendErr,
		Paths:      a.Paths,
		Validator:  a.Validator,
	})

	if a.Config.Source != "" {
		fmt.Fprintf(out, "Config:   %s\n", a.Config.Source)
	} else {
		fmt.Fprintf(out, "Config:   defaults\n")
	}
	if r.BackendAvailable {
		fmt.Fprintf(out, "Backend:  %s (%s)\n", r.BackendName, r.EngineVersion)
	} else {
		fmt.Fprintf(out, "Backend:  unavailable: %s\n", r.BackendError)
	}
	if r.StateWritable {
		fmt.Fprintf(out, "State:    %s\n", a.Paths.StateDir)
	} else {
		fmt.Fprintf(out, "State:    %s (not writable: %s)\n", a.Paths.StateDir, r.StateError)
	}
	fmt.Fprintf(out, "Fixtures: %d in %s, %d invalid\n", len(r.Fixtures), a.Paths.FixturesDir, r.InvalidFixtures())
	for _, f := range r.Fixtures {
		if f.Valid {
			fmt.Fprintf(out, "  ✓ %-24s age %s\n", f.ID, f.Age)
			continue
		}
		fmt.Fprintf(out, "  ✗ %-24s %d problem(s)\n", f.ID, len(f.Problems))
	}
	fmt.Fprintf(out, "Status:   %s\n", r.Summary())

	if r.Summary() != health.StatusUnavailable {
		return nil
	}
	if _, err := a.RequireBackend(); err != nil {
		return err
	}
	return fixerrors.ConfigError(fmt.Sprintf("backend %s did not respond", r.BackendName), errors.New(r.BackendError)).
		WithRemediation("Check that the database is running and the [backend] commands are correct")
}
