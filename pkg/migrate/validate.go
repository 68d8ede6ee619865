package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migration files on disk under dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return Validate(os.DirFS(dir))
}

// Validate checks that every .sql file in fsys has a timestamped name, a
// unique version and both goose sections. Non-sql files are ignored.
func Validate(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(files))
	for _, file := range files {
		match := migrationName.FindStringSubmatch(file)
		if match == nil {
			return fmt.Errorf("migration %q: name must look like YYYYMMDDHHMMSS_snake_case.sql", file)
		}
		if other, dup := versions[match[1]]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", other, file, match[1])
		}
		versions[match[1]] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read %q: %w", file, err)
		}
		for _, section := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), section) {
				return fmt.Errorf("migration %q has no %q section", file, section)
			}
		}
	}
	return nil
}
