package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/hwinventory-backend/api/routes"
	"github.com/angelmondragon/hwinventory-backend/internal/engine"
	"github.com/angelmondragon/hwinventory-backend/internal/seed"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
	"github.com/angelmondragon/hwinventory-backend/pkg/migrate"
	"github.com/angelmondragon/hwinventory-backend/pkg/redis"
)

const (
	serviceName       = "api"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

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

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server exited")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	// nil keeps the router usable without redis; replays are then skipped.
	var cache *redis.Client
	if cfg.Redis.Enabled() {
		if cache, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return err
		}
		defer cache.Close()
	} else {
		logg.Warn(ctx, "redis not configured, idempotent replays disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := engine.New(dbClient, logg, metrics.NewInventoryMetrics(reg))
	if err != nil {
		return err
	}
	if cfg.FeatureFlags.SeedSampleInventory {
		if _, err := seed.Run(ctx, eng.Parts, eng.Orders, logg); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              listenAddr(cfg.App),
		Handler:           routes.NewRouter(cfg, logg, dbClient, cache, eng, metrics.NewHTTPMetrics(reg), reg),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return serve(ctx, server, logg.WithFields(ctx, map[string]any{"addr": server.Addr, "driver": cfg.DB.Driver}), logg)
}

// serve blocks until the server fails or ctx is cancelled, then drains
// in-flight requests.
func serve(ctx context.Context, server *http.Server, logCtx context.Context, logg *logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logCtx, "api server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// listenAddr prefers the platform supplied PORT over HWINV_APP_PORT.
func listenAddr(app config.AppConfig) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + app.Port
}
