package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/idempotency"
	"github.com/safar/go-sql-shop/internal/logger"
	"github.com/safar/go-sql-shop/internal/metrics"
	"github.com/safar/go-sql-shop/internal/shop"
	"github.com/safar/go-sql-shop/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	configureJSON()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "sqlshop-api",
		Env:     cfg.Log.Env,
		Level:   cfg.Log.Level,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("configure auth (set JWT_SECRET): %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to database")

	if cfg.Database.AutoMigrate {
		applied, err := migrations.Run(ctx, db, migrations.Up)
		if err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("migrations applied", slog.Int("count", len(applied)))
	}

	publisher := newPublisher(cfg.Kafka, log)
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "sqlshop"),
	)
	m := metrics.NewServerMetrics(reg, "api")

	idem, closeIdem, err := newIdempotency(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeIdem()

	a := &api{
		svc: shop.New(shop.Deps{
			DB:        db,
			Publisher: publisher,
			Logger:    log,
			Metrics:   m,
			Issuer:    issuer,

			PublishTimeout: cfg.Kafka.PublishTimeout,
		}),
		db:          db,
		issuer:      issuer,
		log:         log,
		metrics:     m,
		gatherer:    reg,
		idempotency: idem,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newPublisher(cfg config.KafkaConfig, log *slog.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("kafka not configured, order events disabled")
		return events.NopPublisher{}
	}
	log.Info("publishing order events", slog.Any("brokers", cfg.Brokers), slog.String("topic", cfg.OrderTopic))
	return events.NewKafkaPublisher(cfg.Brokers, cfg.OrderTopic)
}

// newIdempotency returns nil when redis is not configured.
func newIdempotency(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (*idempotency.Middleware, func(), error) {
	if cfg.Addr == "" {
		log.Info("redis not configured, checkout idempotency disabled")
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("checkout idempotency enabled", slog.String("redis", cfg.Addr))
	store := idempotency.NewRedisStore(client)
	return idempotency.NewMiddleware(store, cfg.IdempotencyTTL, log), func() { client.Close() }, nil
}
