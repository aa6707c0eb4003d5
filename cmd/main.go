/**
 * @description
 * Entry point for the WealthWise ledger service. Initializes configuration,
 * the database pool (with bounded connect retries), the aggregation-service
 * client, the optional RabbitMQ producer and Redis rate limiter, the core
 * service, the background sync scheduler, and the HTTP server, then waits
 * for a shutdown signal.
 *
 * @dependencies
 * - log/slog, net/http, os/signal: Standard Go libraries.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/aggclient, pkg/rabbitmq: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Adamhepburn/WealthWise/internal/api"
	"github.com/Adamhepburn/WealthWise/internal/app"
	"github.com/Adamhepburn/WealthWise/internal/config"
	"github.com/Adamhepburn/WealthWise/internal/store"
	"github.com/Adamhepburn/WealthWise/pkg/aggclient"
	"github.com/Adamhepburn/WealthWise/pkg/rabbitmq"
)

func main() {
	// Load a local .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL must be configured")
		os.Exit(1)
	}
	if cfg.AggregationAPIBaseURL == "" {
		logger.Error("AGGREGATION_API_BASE_URL must be configured")
		os.Exit(1)
	}

	// Credentials are validated here, before any remote call can happen.
	aggClient, err := aggclient.NewClient(cfg.AggregationAPIBaseURL, cfg.AggregationClientID, cfg.AggregationSecret)
	if err != nil {
		logger.Error("aggregation client init failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := store.Connect(ctx, cfg.DatabaseURL, store.RetryPolicy{
		MaxAttempts: cfg.DBConnectMaxAttempts,
		BaseDelay:   time.Duration(cfg.DBConnectBaseDelayMS) * time.Millisecond,
		Multiplier:  cfg.DBConnectBackoffMultiplier,
	}, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	repository := store.NewPostgresRepository(pool)
	if err := repository.EnsureSchema(ctx); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}
	if cfg.SeedDemoData {
		if err := repository.SeedDemoData(ctx); err != nil {
			logger.Error("demo data seed failed", "error", err)
			os.Exit(1)
		}
		logger.Info("demo data seeded")
	}

	// The event producer is optional: without a broker, sync runs still work
	// and reports are simply not published.
	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq producer unavailable, using fallback", "error", err)
			producer = &rabbitmq.EventProducerFallback{Logger: logger}
		} else {
			defer eventProducer.Close()
			producer = eventProducer
			logger.Info("rabbitmq producer connected")
		}
	}

	ledgerService := app.NewService(repository, aggClient, producer, logger, cfg.SyncLookbackDays)
	ledgerService.SetEventRouting(cfg.SyncEventExchange, cfg.SyncEventRoutingKey)

	if cfg.RedisURL != "" && cfg.LinkTokenRateLimitPerMinute > 0 {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed, link token rate limiting disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed, link token rate limiting disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				ledgerService.SetLinkTokenRateLimiter(
					app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.LinkTokenRateLimitPerMinute,
				)
				logger.Info("redis connected")
			}
			cancelPing()
		}
	}

	jobs := app.NewJobs(ledgerService, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg.SyncJobSchedule)
	scheduler.Start()
	defer scheduler.Stop()

	handlers := api.NewLedgerHandlers(ledgerService, logger)
	router := api.Routes(handlers, cfg.APIJWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
