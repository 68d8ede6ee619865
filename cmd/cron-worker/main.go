package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/hwinventory-backend/internal/cron"
	"github.com/angelmondragon/hwinventory-backend/internal/engine"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
	"github.com/angelmondragon/hwinventory-backend/pkg/migrate"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
	"github.com/angelmondragon/hwinventory-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: serviceName})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "maintenance worker exited")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	lock, closeLock, err := maintenanceLock(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeLock()

	eng, err := engine.New(dbClient, logg, metrics.NewInventoryMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	reconcile, err := cron.NewStockReconcileJob(logg, eng.Parts)
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetentionJob(logg, dbClient, outbox.NewRepository(dbClient.DB()), cfg.Maintenance.OutboxRetention)
	if err != nil {
		return err
	}

	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{reconcile, retention},
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		return svc.RunOnce(ctx)
	}
	logg.Info(logg.WithField(ctx, "interval", cfg.Maintenance.Interval.String()), "maintenance worker started")
	return svc.Run(ctx)
}

// maintenanceLock shares a redis lease between workers when redis is
// configured, else falls back to an in-process lock.
func maintenanceLock(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cron.Lock, func(), error) {
	if !cfg.Redis.Enabled() {
		logg.Warn(ctx, "redis not configured, maintenance lock is process local")
		return &cron.LocalLock{}, func() {}, nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, err
	}
	lock, err := cron.NewRedisLock(client, client.LockKey(cfg.App.Env, "maintenance"), cfg.Maintenance.LockTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock, func() { _ = client.Close() }, nil
}
