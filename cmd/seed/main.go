package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hwinventory-backend/internal/engine"
	"github.com/angelmondragon/hwinventory-backend/internal/seed"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "seed"}).Error(ctx, "config load failed", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "seed",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      "console",
	})

	res, err := run(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		os.Exit(1)
	}
	if res.Skipped {
		fmt.Println("inventory already has parts; nothing seeded")
		return
	}
	fmt.Printf("seeded %d parts and %d orders\n", res.Parts, res.Orders)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (seed.Result, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return seed.Result{}, fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return seed.Result{}, fmt.Errorf("migrations: %w", err)
	}
	eng, err := engine.New(dbClient, logg, nil)
	if err != nil {
		return seed.Result{}, err
	}
	return seed.Run(ctx, eng.Parts, eng.Orders, logg)
}
