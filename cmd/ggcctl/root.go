package main

import (
	"context"
	"errors"

	"github.com/ggc/backend/internal/bootstrap"
	"github.com/ggc/backend/internal/infrastructure/config"
	"github.com/ggc/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errInvalidInventory signals a failed validation; the diagnostics have already been printed
var errInvalidInventory = errors.New("inventory has errors")

type rootOptions struct {
	configFile string
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ggcctl",
		Short: "Inventory loader and snapshot tool",
		Long: `ggcctl reads line-oriented inventory files (PARTNER, BATCH_S and BATCH_M
records) from a local path or s3://bucket/key, and manages persisted snapshots.

Examples:
  # Check a file without loading it
  ggcctl validate ./inventory.txt

  # Load from object storage and store a snapshot
  ggcctl load s3://inventory/current.txt --snapshot

  # Inspect stored snapshots
  ggcctl snapshots list --limit 5
  ggcctl snapshots show 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"config file (default: ./config.toml or /app/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	cmd.AddCommand(
		newValidateCmd(opts),
		newLoadCmd(opts),
		newSnapshotsCmd(opts),
	)
	return cmd
}

// session bundles what a subcommand needs
type session struct {
	cfg        *config.Config
	log        *zap.Logger
	components *bootstrap.Components
	out        *printer
}

func (o *rootOptions) open(ctx context.Context, cmd *cobra.Command, snapshots bool) (*session, error) {
	if o.output != "text" && o.output != "json" {
		return nil, errors.New(`--output must be "text" or "json"`)
	}

	cfg, err := config.LoadFrom(o.configFile)
	if err != nil {
		return nil, err
	}

	// stdout is reserved for command output
	log, err := logger.New(&logger.Config{
		Level:  o.logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return nil, err
	}

	components, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{Snapshots: snapshots})
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:        cfg,
		log:        log,
		components: components,
		out:        newPrinter(cmd.OutOrStdout(), o.output == "json"),
	}, nil
}

func (s *session) Close() {
	if err := s.components.Close(); err != nil {
		s.log.Warn("Error closing resources", zap.Error(err))
	}
	_ = s.log.Sync()
}

func exitCode(err error) int {
	if errors.Is(err, errInvalidInventory) {
		return 2
	}
	return 1
}
