package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
	"github.com/firefly-engineering/fixture-ctl/internal/config"
	fixerrors "github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "fixture-ctl",
	Short: "Reproducible database test fixtures",
	Long: `fixture-ctl captures database namespaces as versioned, checksummed
fixtures and loads them back for tests.

Each fixture is a directory with:
  - manifest.json describing tables, row counts and provenance
  - a snapshot file produced by the database's own backup tooling
  - a SHA-256 checksum verified before every load`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)

		if app.Default != nil {
			return nil
		}
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fixerrors.ConfigError("failed to load configuration", err)
		}
		logging.Debug("configuration loaded", "source", cfg.Source, "fixtures_dir", cfg.FixturesDir)
		app.SetDefault(app.New(app.WithConfig(cfg)))
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so in-flight loads roll back.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to "+config.DefaultConfigFile+" (default: $"+config.ConfigEnvVar+" or ./"+config.DefaultConfigFile+")")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
