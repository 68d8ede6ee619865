package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|to|status|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory; empty uses the files built into the binary")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "cmd", opts.cmd)

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("-name is required for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		source, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		if err := migrate.Validate(source); err != nil {
			return err
		}
		logg.Info(ctx, "migrations valid")
		return nil
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer client.Close()

	if cfg.DB.IsSQLite() {
		if opts.cmd != "up" {
			return fmt.Errorf("-cmd=%s needs postgres; sqlite only supports up", opts.cmd)
		}
		if err := migrate.AutoMigrate(ctx, client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema synced")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	source, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		reverted, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "reverted", reverted), "migration rolled back")
	case "to":
		target, err := strconv.ParseInt(opts.version, 10, 64)
		if err != nil {
			return fmt.Errorf("-version %q: %w", opts.version, err)
		}
		moved, err := runner.To(ctx, target)
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"version": target, "migrations": moved}), "schema at target version")
	case "status":
		states, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(states)
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
	return nil
}

func printStatus(states []migrate.MigrationState) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range states {
		state, at := "pending", "-"
		if st.Applied {
			state, at = "applied", st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Version, state, at, st.File)
	}
}
