package cache

import (
	"context"
	"fmt"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// FactoryOption configures NewIdempotencyStore
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger used to report which store was chosen
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory (default true)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(o *factoryOptions) {
		o.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStore returns a Redis store when Redis is enabled, otherwise an in-memory one
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (shared.IdempotencyStore, error) {
	o := factoryOptions{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(DefaultCleanupInterval), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg)
	if err == nil {
		o.logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !o.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	o.logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(DefaultCleanupInterval), nil
}
