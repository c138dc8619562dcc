package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emiliopalmerini/worktimer/migrations"
)

// Migration is one numbered schema step with its up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Step reports a migration that was applied or rolled back.
type Step struct {
	Version int
	Name    string
	Up      bool
}

func (s Step) String() string {
	dir := "up"
	if !s.Up {
		dir = "down"
	}
	return fmt.Sprintf("%s %03d_%s", dir, s.Version, s.Name)
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// EnsureMigrationsTable creates the schema_migrations table if it doesn't exist.
func EnsureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// CurrentVersion returns the applied version and whether the last run failed halfway.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version, dirty int
	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty == 1, nil
}

func setVersion(ctx context.Context, db *sql.DB, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version <= 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	return err
}

// Load reads the embedded migrations sorted by version.
func Load() ([]Migration, error) {
	var result []Migration

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	for _, e := range entries {
		m := upPattern.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])

		up, err := fs.ReadFile(migrations.FS, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		// Down migrations are optional.
		down, _ := fs.ReadFile(migrations.FS, fmt.Sprintf("%s_%s.down.sql", m[1], m[2]))

		result = append(result, Migration{
			Version: version,
			Name:    m[2],
			UpSQL:   string(up),
			DownSQL: string(down),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

func run(ctx context.Context, db *sql.DB, m Migration, up bool) error {
	sqlText, target := m.UpSQL, m.Version
	if !up {
		sqlText, target = m.DownSQL, m.Version-1
	}

	if err := setVersion(ctx, db, m.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}
	for _, stmt := range strings.Split(sqlText, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w\nSQL: %s", m.Version, err, stmt)
		}
	}
	if err := setVersion(ctx, db, target, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}
	return nil
}

// To migrates up or down to target. A negative target means the latest version.
func To(ctx context.Context, db *sql.DB, target int) ([]Step, error) {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	current, dirty, err := CurrentVersion(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("database is in dirty state at version %d", current)
	}

	all, err := Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if target < 0 && len(all) > 0 {
		target = all[len(all)-1].Version
	}

	var steps []Step
	if target >= current {
		for _, m := range all {
			if m.Version <= current || m.Version > target {
				continue
			}
			if err := run(ctx, db, m, true); err != nil {
				return steps, err
			}
			steps = append(steps, Step{Version: m.Version, Name: m.Name, Up: true})
		}
		return steps, nil
	}

	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Version > current || m.Version <= target {
			continue
		}
		if m.DownSQL == "" {
			return steps, fmt.Errorf("no down migration for version %d", m.Version)
		}
		if err := run(ctx, db, m, false); err != nil {
			return steps, err
		}
		steps = append(steps, Step{Version: m.Version, Name: m.Name, Up: false})
	}
	return steps, nil
}

// RunAll applies every pending migration.
func RunAll(ctx context.Context, db *sql.DB) error {
	_, err := To(ctx, db, -1)
	return err
}
