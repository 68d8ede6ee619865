package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

const (
	envHeader    = "X-HWInv-Env"
	readyTimeout = 2 * time.Second
)

// Dependency is a backing service the API needs before it accepts traffic.
type Dependency struct {
	Name   string
	Pinger db.Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and reports 503 when any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			failed = map[string]string{}
		)
		var g errgroup.Group
		for _, dep := range deps {
			dep := dep
			if dep.Pinger == nil {
				continue
			}
			g.Go(func() error {
				if err := dep.Pinger.Ping(ctx); err != nil {
					mu.Lock()
					failed[dep.Name] = err.Error()
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
