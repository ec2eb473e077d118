package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/audit"
	"github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <fixture-dir>",
	Short: "Show or rewrite a fixture's snapshot checksum",
	Long: `Computes the SHA-256 checksum of the fixture's snapshot and compares it
with the manifest and exits with the checksum-mismatch code when they
differ. With --write the manifest is updated to the computed checksum;
the previous manifest is kept as manifest.json.backup.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksum,
}

var checksumWrite bool

func init() {
	checksumCmd.Flags().BoolVar(&checksumWrite, "write", false, "Update the manifest with the computed checksum")
	rootCmd.AddCommand(checksumCmd)
}

func runChecksum(cmd *cobra.Command, args []string) error {
	dir := fixtureDir(args[0])
	v := validator.New()

	if checksumWrite {
		m, err := v.RecalculateChecksum(dir)
		if err != nil {
			return err
		}
		app.Default.Validator.Cache().Invalidate(dir)
		app.Default.Record(audit.EventChecksum, m.FixtureID, m.Namespace, "rewritten "+m.Checksum)
		logSuccess("Updated checksum for %s: %s", m.FixtureID, m.Checksum)
		return nil
	}

	m, err := manifest.Read(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ManifestNotFound(manifest.Path(dir))
		}
		return errors.ValidationFailed(dir, []string{err.Error()})
	}
	snapshot, err := manifest.SnapshotPath(dir, m)
	if err != nil {
		return errors.ValidationFailed(dir, []string{err.Error()})
	}
	actual, err := v.CalculateChecksum(snapshot)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "manifest: %s\n", m.Checksum)
	fmt.Fprintf(out, "snapshot: %s\n", actual)
	if actual != m.Checksum {
		return errors.ChecksumMismatch(snapshot, m.Checksum, actual)
	}
	logSuccess("Checksums match")
	return nil
}
