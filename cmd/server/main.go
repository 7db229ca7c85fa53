package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rocketharbor/wdpay/internal/adapter/chain/webdollar"
	httpAdapter "github.com/rocketharbor/wdpay/internal/adapter/http"
	"github.com/rocketharbor/wdpay/internal/adapter/http/handler"
	"github.com/rocketharbor/wdpay/internal/adapter/http/middleware"
	memoryRepo "github.com/rocketharbor/wdpay/internal/adapter/repository/memory"
	postgresRepo "github.com/rocketharbor/wdpay/internal/adapter/repository/postgres"
	redisRepo "github.com/rocketharbor/wdpay/internal/adapter/repository/redis"
	"github.com/rocketharbor/wdpay/internal/infrastructure/config"
	"github.com/rocketharbor/wdpay/internal/infrastructure/logger"
	"github.com/rocketharbor/wdpay/internal/infrastructure/metrics"
	"github.com/rocketharbor/wdpay/internal/infrastructure/postgres"
	"github.com/rocketharbor/wdpay/internal/infrastructure/redis"
	"github.com/rocketharbor/wdpay/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// Storage backend
	var (
		repo usecase.PaymentRepository
		pool *pgxpool.Pool
	)
	switch cfg.StorageDriver {
	case "postgres":
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo = postgresRepo.NewPaymentRepository(pool)
		log.Info().Msg("connected to postgres")
	case "memory":
		repo = memoryRepo.NewPaymentRepository()
		log.Warn().Msg("using in-memory storage, payments will not survive a restart")
	default:
		log.Fatal().Str("driver", cfg.StorageDriver).Msg("unknown storage driver")
	}

	// Redis is optional: without it the API still works, it just loses
	// idempotent webhook replays and the terminal status cache.
	var (
		redisClient      *goredis.Client
		idempotencyStore usecase.IdempotencyStore
		cache            usecase.Cache
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		cache = redisRepo.NewCache(redisClient)
		log.Info().Msg("connected to redis")
	}

	// WebDollar node client. The node being down at boot is not fatal:
	// create and webhook keep working, and status reads degrade to 503
	// until the node comes back.
	node := webdollar.NewClient(webdollar.Config{
		URL:     cfg.NodeURL,
		Timeout: cfg.NodeQueryTimeout,
	}, log)
	go func() {
		if err := node.Connect(ctx); err != nil {
			log.Warn().Err(err).Str("url", cfg.NodeURL).
				Msg("webdollar node unreachable, status checks will degrade until it recovers")
		}
	}()

	m := metrics.New()
	idGen := postgresRepo.NewULIDGenerator()

	reconcileUC := usecase.NewReconcileUseCase(repo, node, cfg.NodeQueryTimeout, m, log)
	paymentUC := usecase.NewPaymentUseCase(repo, reconcileUC, idGen, cache, m, log)

	paymentHandler := handler.NewPaymentHandler(paymentUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient, node)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PaymentHandler:   paymentHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		RateLimiter:      rateLimiter,
		Logger:           log,
		PublicDir:        cfg.PublicDir,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.SweepEnabled {
		sweeper := usecase.NewSweeper(repo, reconcileUC, cfg.SweepInterval, cfg.SweepBatchSize, m, log)
		go sweeper.Run(bgCtx)
		log.Info().Dur("interval", cfg.SweepInterval).Msg("background sweeper started")
	}
	if rateLimiter != nil {
		go rateLimiter.Run(bgCtx, time.Hour, time.Hour)
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
