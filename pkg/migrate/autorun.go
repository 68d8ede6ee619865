package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at process start. sqlite databases
// are always migrated from the models. Postgres is migrated with the embedded
// SQL files only in dev with HWINV_AUTO_MIGRATE on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)
	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "syncing sqlite schema from models")
		return AutoMigrate(ctx, client.DB())
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source)
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "schema migrations applied")
	return nil
}
