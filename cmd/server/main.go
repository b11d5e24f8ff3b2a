package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"passbook/internal/passes/events"
	passhandler "passbook/internal/passes/handler"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/service"
	"passbook/internal/passes/store"
	"passbook/internal/passes/store/pass"
	"passbook/internal/platform/config"
	"passbook/internal/platform/database"
	"passbook/internal/platform/health"
	"passbook/internal/platform/httpserver"
	"passbook/internal/platform/kafka/producer"
	"passbook/internal/platform/logger"
	"passbook/internal/platform/metrics"
	"passbook/internal/platform/redis"
	"passbook/internal/platform/tracing"
	httptransport "passbook/internal/transport/http"
	"passbook/pkg/platform/circuit"
	"passbook/pkg/platform/middleware/metadata"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing passbook",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Brokers != "",
	)

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	reg := metrics.NewRegistry()
	passMetrics := passmetrics.New(reg)
	checks := health.New(cfg.Environment)

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close() //nolint:errcheck // process is exiting
	checks.RegisterCheck("database", pool.Health)
	if err := metrics.RegisterDBStats(reg, "passbook", pool.DB()); err != nil {
		return fmt.Errorf("register db stats: %w", err)
	}

	stores, err := store.New(pool)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	redisClient, err := redis.New(ctx, cfg.Redis, redis.NewPoolMetrics(reg))
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // process is exiting
		checks.RegisterCheck("redis", redisClient.Health)
		stores.Passes = pass.NewCached(stores.Passes, redisClient, cfg.Redis.CacheTTL,
			pass.WithCacheLogger(log),
			pass.WithCacheMetrics(passMetrics),
			pass.WithCacheBreaker(circuit.New("pass-cache",
				circuit.WithFailureThreshold(cfg.Redis.BreakerFailures),
				circuit.WithCooldown(cfg.Redis.BreakerCooldown),
			)),
		)
		g.Go(func() error {
			recordPoolStats(ctx, redisClient)
			return nil
		})
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(passMetrics),
		service.WithTracer(tracing.NewOTel()),
	}
	if cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := prod.Close(closeCtx); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}()
		if err := prod.EnsureTopic(ctx, cfg.Kafka.Topic, 3, 1); err != nil {
			log.Warn("kafka topic bootstrap failed", "topic", cfg.Kafka.Topic, "error", err)
		}
		checks.RegisterCheck("kafka", prod.Health)
		opts = append(opts, service.WithPublisher(events.NewKafkaPublisher(prod, cfg.Kafka.Topic)))
	}

	svc := service.New(stores.Passes, stores.Registrations, opts...)
	router := httptransport.NewRouter(httptransport.Config{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TrustedProxies: trustedProxies,
	}, passhandler.New(svc, log), checks, reg, log)

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		return httpserver.Serve(ctx, srv, shutdownTimeout)
	})

	return g.Wait()
}

func recordPoolStats(ctx context.Context, client *redis.Client) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.RecordPoolStats()
		}
	}
}
