package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hwinventory-backend/internal/backup"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

type options struct {
	cmd  string
	dir  string
	file string
	yes  bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "export", "export|restore|list")
	flag.StringVar(&opts.dir, "dir", "backups", "directory snapshots are written to and listed from")
	flag.StringVar(&opts.file, "file", "", "snapshot to load for -cmd=restore")
	flag.BoolVar(&opts.yes, "yes", false, "confirm that -cmd=restore may replace every part, order and activity entry")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "backup"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "backup",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "cmd", opts.cmd)

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "backup failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "list":
		files, err := backup.ListFiles(opts.dir)
		if err != nil {
			return err
		}
		printFiles(files)
		return nil
	case "restore":
		if opts.file == "" {
			return errors.New("-file is required for restore")
		}
		if !opts.yes {
			return errors.New("restore replaces all inventory data; pass -yes to confirm")
		}
	case "export":
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer client.Close()

	svc, err := backup.NewService(client, logg)
	if err != nil {
		return err
	}

	if opts.cmd == "restore" {
		snap, err := backup.ReadFile(opts.file)
		if err != nil {
			return err
		}
		counts, err := svc.Restore(ctx, snap)
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"file":          opts.file,
			"parts":         counts.Parts,
			"orders":        counts.Orders,
			"activity_logs": counts.ActivityLogs,
		}), "snapshot restored")
		return nil
	}

	snap, err := svc.Export(ctx)
	if err != nil {
		return err
	}
	path, err := backup.WriteFile(opts.dir, snap)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"file":          path,
		"parts":         len(snap.Parts),
		"orders":        len(snap.Orders),
		"activity_logs": len(snap.ActivityLogs),
	}), "snapshot written")
	fmt.Println(path)
	return nil
}

func printFiles(files []backup.FileInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "FILE\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04:05"))
	}
}
