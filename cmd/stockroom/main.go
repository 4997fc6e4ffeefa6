package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"stockroom/internal/auth"
	"stockroom/internal/backend"
	"stockroom/internal/cache"
	"stockroom/internal/cli"
	"stockroom/internal/grpcserver"
	apphttp "stockroom/internal/http"
	applog "stockroom/internal/log"
	"stockroom/internal/services"
)

const (
	maxSessions          = 10000
	cacheCleanupInterval = time.Minute
	healthCheckInterval  = 15 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sessions := auth.NewSessionStore(cfg.SessionTTL, maxSessions)
	dashboard := services.NewDashboardService(be.Feed, backendCfg.Location, cfg.SeriesCacheTTL, cfg.SeriesCacheSize, logger)
	users := services.NewUserService(be.Store, sessions, logger)

	if created, err := users.EnsureAdmin(context.Background(), cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		logger.Error("Failed to create bootstrap administrator", applog.FieldError, err)
		os.Exit(1)
	} else if created {
		logger.Info("Bootstrap administrator created", "email", cfg.BootstrapAdminEmail)
	}

	caches := cache.NewManager(logger.Slog())
	caches.Register("sessions", sessions)
	caches.Register("series", dashboard)
	caches.StartCleanup(cacheCleanupInterval)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Inventory:          services.NewInventoryService(be.Store, be.Publisher, dashboard, logger),
		Catalog:            services.NewCatalogService(be.Store, logger),
		Records:            services.NewRecordService(be.Store),
		Users:              users,
		Dashboard:          dashboard,
		Sessions:           sessions,
		Store:              be.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	var health *grpcserver.Server
	if cfg.GRPCHealthPort != "" {
		health = grpcserver.New(net.JoinHostPort("", cfg.GRPCHealthPort), logger)
	}

	stopServers := func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown error", applog.FieldError, err)
		}
		if health != nil {
			health.Stop()
		}
	}
	release := func() {
		caches.Stop()
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		stopServers(ctx)
		release()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting stockroom server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", backendCfg.Location.String(),
			"remote_feed", cfg.FeedBaseURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if health != nil {
		g.Go(health.Start)
		g.Go(func() error {
			health.Watch(gctx, be.Store.Ping, healthCheckInterval)
			return nil
		})
	}
	// A server that fails to start takes the others down with it.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			stopServers(sctx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		release()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
