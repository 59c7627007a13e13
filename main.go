package main

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"edge-resizer/config"
	"edge-resizer/metrics"
	"edge-resizer/policy"
	"edge-resizer/routes"
	"edge-resizer/storage"
	"edge-resizer/transform"
)

var logger *zap.Logger

func main() {
	logger, _ = zap.NewProduction()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			log.Println(err)
		}
	}(logger)

	config, err := env.ParseAs[config.Config]()
	if err != nil {
		logger.Fatal(err.Error())
	}

	if config.Metrics == nil {
		metrics := true
		config.Metrics = &metrics
	}

	bucket := config.Bucket()
	if bucket == "" {
		logger.Fatal("no bucket configured", zap.String("function_name", config.FunctionName))
	}

	store, err := storage.NewS3Storage(storage.S3Options{
		Endpoint:  config.S3Endpoint,
		AccessKey: config.S3AccessKey,
		SecretKey: config.S3SecretKey,
		Region:    config.S3Region,
		UseSSL:    config.S3UseSSL,
		Bucket:    bucket,
	})
	if err != nil {
		logger.Fatal(err.Error())
	}

	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": "edge-resizer"}
	counters := metrics.InitializeMetrics(registry, constLabels)
	performance := metrics.InitializePerformanceMetrics(registry, constLabels)

	resizePolicy := policy.New(logger, store, transform.New(config.Quality), counters, performance, config.InlineLimit)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Prefork:               config.Prefork,
		BodyLimit:             64 * 1024 * 1024,
	})

	app.Use(healthcheck.New())
	app.Use(compress.New())

	if *config.Metrics {
		routes.RegisterMetricsRoutes(app, registry)
	}

	routes.RegisterHookRoutes(logger, app, resizePolicy, performance)

	address := config.Address
	if address == "" {
		address = ":3000"
	}

	logger.Info("server starting", zap.String("address", address), zap.String("bucket", bucket), zap.Int("inline_limit", config.InlineLimit))

	log.Fatal(app.Listen(address))
}
