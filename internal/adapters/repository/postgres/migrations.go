package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationContent returns the first migration file whose name ends in
// name + ".sql", e.g. "create_ballot.up".
func MigrationContent(name string) (string, []byte, error) {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(name)))
	if err != nil {
		return "", nil, fmt.Errorf("invalid migration name: %w", err)
	}

	files, err := migrationNames()
	if err != nil {
		return "", nil, err
	}
	for _, f := range files {
		if pattern.MatchString(f) {
			content, err := migrationFiles.ReadFile("migrations/" + f)
			if err != nil {
				return "", nil, err
			}
			return f, content, nil
		}
	}
	return "", nil, fmt.Errorf("migration file not found")
}

// ApplyUpMigrations runs every up migration in file name order.
func ApplyUpMigrations(ctx context.Context, db *sql.DB) error {
	files, err := migrationNames()
	if err != nil {
		return err
	}
	for _, f := range files {
		if !strings.HasSuffix(f, ".up.sql") {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", f, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
