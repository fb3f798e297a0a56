package inventoryapp

import (
	"context"
	"fmt"
	"time"

	"github.com/ggc/backend/internal/infrastructure/watcher"
	"go.uber.org/zap"
)

// Reloader reloads a local inventory file whenever it changes
type Reloader struct {
	service  *LoadService
	debounce time.Duration
	logger   *zap.Logger
}

// NewReloader creates a reloader driving service
func NewReloader(service *LoadService, debounce time.Duration, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{service: service, debounce: debounce, logger: logger}
}

// Run watches path until ctx is done. A failed reload is logged and the
// previously published warehouse keeps serving.
func (r *Reloader) Run(ctx context.Context, path string) error {
	w, err := watcher.New(watcher.Config{Path: path, Debounce: r.debounce, Logger: r.logger})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			r.logger.Info("Inventory file changed, reloading", zap.String("path", path))
			if _, err := r.service.Load(ctx, path); err != nil {
				r.logger.Warn("Reload failed, keeping previous inventory",
					zap.String("path", path),
					zap.Error(err),
				)
			}
		}
	}
}

// Poll reloads uri every interval until ctx is done. Unchanged content is
// skipped; failures are logged and the previous warehouse keeps serving.
func (r *Reloader) Poll(ctx context.Context, uri string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Polling inventory source", zap.String("source", uri), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := r.service.LoadIfChanged(ctx, uri)
			if err != nil {
				r.logger.Warn("Reload failed, keeping previous inventory",
					zap.String("source", uri),
					zap.Error(err),
				)
				continue
			}
			if !report.Unchanged {
				r.logger.Info("Inventory source changed, reloaded", zap.String("source", uri))
			}
		}
	}
}
