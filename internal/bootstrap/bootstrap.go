// Package bootstrap wires configuration into the inventory load pipeline
// shared by the server and the command line tool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	inventoryapp "github.com/ggc/backend/internal/application/inventory"
	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/infrastructure/cache"
	"github.com/ggc/backend/internal/infrastructure/config"
	lineimport "github.com/ggc/backend/internal/infrastructure/import"
	"github.com/ggc/backend/internal/infrastructure/persistence"
	"github.com/ggc/backend/internal/infrastructure/storage"
	"github.com/ggc/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Options adjusts what Build wires beyond the configuration
type Options struct {
	// Snapshots opens the database even when database.enabled is false
	Snapshots bool
	// Meter enables load metrics when set
	Meter metric.Meter
}

// Components holds the wired pipeline
type Components struct {
	Holder      *inventoryapp.WarehouseHolder
	Service     *inventoryapp.LoadService
	Resolver    *storage.SourceResolver
	Database    *persistence.Database
	Snapshots   *persistence.SnapshotRepository
	Idempotency shared.IdempotencyStore

	logger *zap.Logger
}

// ParserOptions translates import settings into parser options
func ParserOptions(cfg config.ImportConfig) []lineimport.ParserOption {
	var opts []lineimport.ParserOption
	if cfg.Separator != "" {
		opts = append(opts, lineimport.WithSeparator(cfg.Separator))
	}
	if cfg.MaxLineBytes > 0 {
		opts = append(opts, lineimport.WithMaxLineBytes(cfg.MaxLineBytes))
	}
	if cfg.MaxErrors > 0 {
		opts = append(opts, lineimport.WithMaxErrors(cfg.MaxErrors))
	}
	return opts
}

// Build wires resolver, persistence, idempotency and the load service from cfg
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*Components, error) {
	c := &Components{
		Holder:   inventoryapp.NewWarehouseHolder(),
		Resolver: storage.NewSourceResolver(&cfg.Storage, storage.WithLogger(log)),
		logger:   log,
	}

	serviceOpts := []inventoryapp.Option{
		inventoryapp.WithLogger(log),
		inventoryapp.WithDefaultSource(cfg.Import.Source),
		inventoryapp.WithParserOptions(ParserOptions(cfg.Import)...),
	}

	if opts.Meter != nil {
		metrics, err := telemetry.NewLoadMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create load metrics: %w", err)
		}
		serviceOpts = append(serviceOpts, inventoryapp.WithMetrics(metrics))
	}

	if cfg.Database.Enabled || opts.Snapshots {
		db, err := persistence.NewDatabase(&cfg.Database,
			persistence.WithLogger(log),
			persistence.WithTracing(cfg.Telemetry.DBTraceEnabled),
		)
		if err != nil {
			return nil, err
		}
		c.Database = db
		c.Snapshots = persistence.NewSnapshotRepository(db.DB)
		serviceOpts = append(serviceOpts, inventoryapp.WithSnapshots(c.Snapshots))
	}

	if c.Snapshots != nil && cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cache.WithLogger(log))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Idempotency = store
		serviceOpts = append(serviceOpts, inventoryapp.WithIdempotency(store, cfg.Idempotency.TTL))
	}

	c.Service = inventoryapp.NewLoadService(c.Resolver, c.Holder, serviceOpts...)
	return c, nil
}

// Close releases the database and idempotency store
func (c *Components) Close() error {
	var errs []error
	if c.Idempotency != nil {
		if err := c.Idempotency.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close idempotency store: %w", err))
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
