package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/migrate"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/registry"
	"github.com/angelmondragon/hwinventory-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	_ = godotenv.Load()
	boot := logger.New(logger.Options{ServiceName: serviceName})
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox relay stopped", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "outbox relay exited")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	// Close flushes buffered messages, so it must outlive the relay loop.
	defer func() {
		if err := ps.Close(); err != nil {
			logg.Error(context.Background(), "pubsub close failed", err)
		}
	}()

	relay, err := NewRelay(RelayParams{
		Outbox:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   ps,
		Store:    outbox.NewRepository(dbClient.DB()),
		Registry: events,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "outbox relay started")
	return relay.Run(ctx)
}
