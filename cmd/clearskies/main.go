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

	"github.com/clearskies-io/clearskies/internal/airquality"
	httpapi "github.com/clearskies-io/clearskies/internal/api/http"
	"github.com/clearskies-io/clearskies/internal/assessment"
	"github.com/clearskies-io/clearskies/internal/assessment/sources"
	"github.com/clearskies-io/clearskies/internal/breath"
	"github.com/clearskies-io/clearskies/internal/cache"
	"github.com/clearskies-io/clearskies/internal/config"
	"github.com/clearskies-io/clearskies/internal/forecast"
	"github.com/clearskies-io/clearskies/internal/log"
	"github.com/clearskies-io/clearskies/internal/scheduler"
	"github.com/clearskies-io/clearskies/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := log.Init(cfg.Debug); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	zlog := log.GetSugaredLogger()

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	// Data source collaborators with resilience (backoff + circuit breaker).
	var srcs []assessment.ReadingSource
	if cfg.TempoBaseURL != "" {
		srcs = append(srcs, sources.NewTempoSource(httpClient, cfg.TempoBaseURL))
	}
	srcs = append(srcs, sources.NewOpenAQSource(httpClient, cfg.OpenAQAPIKey, cfg.GroundRadiusKm))

	var weatherSrc assessment.WeatherSource
	if cfg.OpenWeatherAPIKey != "" {
		weatherSrc = sources.NewOpenWeatherSource(httpClient, cfg.OpenWeatherAPIKey)
	}

	// Engine components, each with explicit immutable configuration.
	calc := airquality.NewCalculator(airquality.DefaultAQIConfig())
	fuser := airquality.NewFuser(airquality.FusionConfig{StalenessWindow: cfg.StalenessWindow}, calc, zlog)
	predictor := forecast.New(forecast.DefaultConfig())
	scorer := breath.NewEngine(breath.Config{MaskThreshold: cfg.MaskThreshold})

	spatialCache := cache.New(cache.Config{
		Resolution: cfg.CacheResolution,
		MaxSize:    cfg.CacheMaxSize,
	})

	// In-memory observation history with configured retention.
	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Core service orchestrating sources, fusion, cache, and scoring.
	service := assessment.NewService(srcs, weatherSrc, fuser, predictor, scorer, spatialCache, history, assessment.Config{
		ConditionsTTL: cfg.ConditionsTTL,
		ForecastTTL:   cfg.ForecastCacheTTL,
		Resolution:    cfg.CacheResolution,
	}, zlog)

	// Scheduler that periodically observes tracked locations.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service, zlog)
	if err := sched.Start(); err != nil {
		zlog.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "clearskies",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
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

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "clearskies",
			"cache":   service.CacheStats(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Errorf("error during shutdown: %v", err)
	}

}
