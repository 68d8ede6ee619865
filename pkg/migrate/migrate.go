package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

// DefaultDir is where new migration files are written.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migrations compiled into the binary, or dir on disk when
// it is set.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	return os.DirFS(dir), nil
}

// MigrationState is one row of the status report.
type MigrationState struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies the Postgres migrations with a goose provider. sqlite
// databases take their schema from AutoMigrate instead.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the applied file names.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return appliedFiles(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (string, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return "", fmt.Errorf("goose down: %w", err)
	}
	return appliedFiles([]*goose.MigrationResult{result})[0], nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]string, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose to %d: %w", target, err)
	}
	return appliedFiles(results), nil
}

func (r *Runner) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationState{
			Version:   st.Source.Version,
			File:      path.Base(st.Source.Path),
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

func appliedFiles(results []*goose.MigrationResult) []string {
	files := make([]string, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			files = append(files, "")
			continue
		}
		files = append(files, path.Base(res.Source.Path))
	}
	return files
}

// AutoMigrate builds the schema straight from the gorm models. Used for sqlite
// databases and tests, where the Postgres SQL files do not apply.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
