package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/nearcare/provider-discovery/internal/api/http"
	"github.com/nearcare/provider-discovery/internal/config"
	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/geocode"
	"github.com/nearcare/provider-discovery/internal/scheduler"
	"github.com/nearcare/provider-discovery/internal/store"
	"github.com/nearcare/provider-discovery/internal/upstream"
)

func main() {
	log := zap.Must(zap.NewProduction())
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	// The cache store handle is constructed once here and injected; its
	// lifecycle belongs to the process, not to package imports.
	cache, err := store.NewSQLite(cfg.SQLiteDSN)
	if err != nil {
		log.Fatal("failed to open provider cache", zap.Error(err))
	}
	defer cache.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cache.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatal("failed to migrate provider cache", zap.Error(err))
	}
	cancelMigrate()

	// Shared HTTP client for outbound mirror calls; the per-attempt
	// deadline comes from the request context, not the client.
	httpClient := &http.Client{}

	mirrors, err := upstream.NewClient(cfg.Mirrors, httpClient, cfg.MirrorTimeout, log.Named("upstream"))
	if err != nil {
		log.Fatal("failed to build mirror client", zap.Error(err))
	}

	service := discovery.NewService(cache, mirrors, discovery.ServiceOptions{
		TTL:    cfg.CacheTTL,
		Policy: cfg.FreshnessPolicy,
		Logger: log.Named("discovery"),
	})

	var resolver *geocode.Resolver
	if cfg.GeocoderAPIKey != "" {
		resolver = geocode.New(cfg.GeocoderAPIKey, log.Named("geocode"))
	}

	prewarm := scheduler.New(cfg.PrewarmWindows, cfg.PrewarmInterval, service, log.Named("prewarm"))
	if err := prewarm.Start(); err != nil {
		log.Fatal("failed to start prewarm scheduler", zap.Error(err))
	}
	defer prewarm.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "provider-discovery",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "provider-discovery",
		})
	})

	httpapi.RegisterRoutes(app, service, resolver)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
}
