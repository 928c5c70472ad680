package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/opentender/sealed-tender-backend/internal/api/rest"
	"github.com/opentender/sealed-tender-backend/internal/infrastructure/cache"
	"github.com/opentender/sealed-tender-backend/internal/infrastructure/config"
	"github.com/opentender/sealed-tender-backend/internal/infrastructure/database"
	"github.com/opentender/sealed-tender-backend/internal/infrastructure/repository"
	"github.com/opentender/sealed-tender-backend/internal/infrastructure/telemetry"
	"github.com/opentender/sealed-tender-backend/internal/service/tendering"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
		migrate    = flag.Bool("migrate", false, "Run database migrations and exit")
	)
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	zapLogger, err := telemetry.SetupZapLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitTracing(ctx, &telemetry.Config{
		ServiceName:    "tender-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	if *migrate {
		if err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, zapLogger); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		return
	}

	var (
		repo     tendering.TenderRepository
		checkers []rest.HealthChecker
	)
	switch cfg.Storage.Backend {
	case "memory":
		repo = repository.NewMemoryTenderRepository()
		logger.Warn("using in-memory storage, tenders will not survive a restart")
	default:
		pool, err := database.Connect(ctx, &cfg.Database, zapLogger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		repo = repository.NewPostgresTenderRepository(pool)
		checkers = append(checkers, rest.CheckerFunc{
			CheckerName: "postgres",
			Fn:          pool.Ping,
		})
	}

	var rateLimiter cache.RateLimiter
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis, zapLogger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		rateLimiter = cache.NewRedisRateLimiter(redisClient, zapLogger)
		checkers = append(checkers, rest.CheckerFunc{
			CheckerName: "redis",
			Fn: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := rest.NewHTTPMetrics(registry)

	service := tendering.NewService(repo, zapLogger,
		tendering.WithOperators(cfg.Security.Operators),
		tendering.WithMetrics(registry),
	)

	router := rest.NewRouter(rest.RouterConfig{
		Handler: rest.NewHandler(service, nil),
		Health:  rest.NewHealthHandler(cfg.Version, checkers...),
		Auth: rest.AuthMiddleware(rest.AuthConfig{
			JWTSecret: cfg.Security.JWTSecret,
			DevMode:   cfg.IsDevelopment(),
		}),
		RateLimit: rest.RateLimitMiddleware(rateLimiter,
			cfg.Security.RateLimit.RequestsPerSecond,
			cfg.Security.RateLimit.BurstSize,
			logger),
		Registry: registry,
		Middlewares: []rest.Middleware{
			rest.RequestIDMiddleware(),
			rest.RecoveryMiddleware(logger),
			rest.LoggingMiddleware(logger),
			httpMetrics.Middleware(),
		},
	})

	server := rest.NewServer(&cfg.Server, router, logger)
	if err := server.Start(ctx, cfg.Server.ShutdownTimeout); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
