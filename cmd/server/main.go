package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	inventoryapp "github.com/ggc/backend/internal/application/inventory"
	"github.com/ggc/backend/internal/bootstrap"
	"github.com/ggc/backend/internal/infrastructure/config"
	"github.com/ggc/backend/internal/infrastructure/logger"
	"github.com/ggc/backend/internal/infrastructure/storage"
	"github.com/ggc/backend/internal/infrastructure/telemetry"
	"github.com/ggc/backend/internal/interfaces/http/handler"
	"github.com/ggc/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting inventory server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Load pipeline
	components, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{
		Meter: mp.Meter(telemetry.TracerName),
	})
	if err != nil {
		log.Fatal("Failed to wire inventory pipeline", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("Error closing resources", zap.Error(err))
		}
	}()

	if cfg.Import.Source != "" {
		if _, err := components.Service.Reload(ctx); err != nil {
			// the server still starts and serves an empty warehouse until a reload succeeds
			log.Error("Initial inventory load failed", zap.Error(err))
		}
	} else {
		log.Warn("No import.source configured, serving an empty warehouse")
	}

	if cfg.Import.Watch {
		startReloader(ctx, cfg, components.Service, log)
	}
	if cfg.Import.PollInterval > 0 && cfg.Import.Source != "" {
		poller := inventoryapp.NewReloader(components.Service, 0, log)
		go func() {
			if err := poller.Poll(ctx, cfg.Import.Source, cfg.Import.PollInterval); err != nil {
				log.Error("Source polling stopped", zap.Error(err))
			}
		}()
	}

	// HTTP
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        cfg.Telemetry.Enabled,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, components.Holder)
	if components.Database != nil {
		systemHandler.AddCheck("database", func(context.Context) error {
			return components.Database.Ping()
		})
	}

	var reloader handler.Reloader
	if cfg.Import.Source != "" {
		reloader = components.Service
	}

	router.NewRouter(engine, router.WithHealth(systemHandler.Health)).
		Register(handler.NewWarehouseHandler(components.Holder, reloader)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server exited gracefully")
}

// startReloader watches the configured source when it is a local file
func startReloader(ctx context.Context, cfg *config.Config, service *inventoryapp.LoadService, log *zap.Logger) {
	source := cfg.Import.Source
	if source == "" || strings.HasPrefix(source, storage.SchemeS3+"://") {
		log.Warn("import.watch needs a local import.source, file watching disabled", zap.String("source", source))
		return
	}
	source = strings.TrimPrefix(source, storage.SchemeFile+"://")

	reloader := inventoryapp.NewReloader(service, cfg.Import.WatchDebounce, log)
	go func() {
		if err := reloader.Run(ctx, source); err != nil {
			log.Error("File watcher stopped", zap.Error(err))
		}
	}()
}
