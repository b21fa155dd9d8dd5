package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk root used by the create/validate commands. Each
// driver keeps its own subdirectory.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedded embed.FS

// goose keeps dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

// Dialect maps a configured database driver onto the goose dialect name.
func Dialect(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres, "":
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

// DirFor returns the migration directory for driver below root.
func DirFor(root, driver string) string {
	if driver == "" {
		driver = config.DriverPostgres
	}
	return root + "/" + driver
}

// Embedded exposes the compiled-in migrations for driver as an fs.FS rooted at
// the driver directory.
func Embedded(driver string) (fs.FS, error) {
	if _, err := Dialect(driver); err != nil {
		return nil, err
	}
	if driver == "" {
		driver = config.DriverPostgres
	}
	return fs.Sub(embedded, "migrations/"+driver)
}

// Run executes a standard goose command that requires a DB connection. An
// empty dir runs the embedded migrations for driver.
func Run(ctx context.Context, db *sql.DB, driver, dir string, logg *logger.Logger, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	return withGoose(ctx, driver, dir, logg, func(path string) error {
		if err := goose.RunContext(ctx, command, db, path, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// Up applies every pending embedded migration for driver.
func Up(ctx context.Context, db *sql.DB, driver string, logg *logger.Logger) error {
	return Run(ctx, db, driver, "", logg, "up")
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, driver, dir string, logg *logger.Logger, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	return withGoose(ctx, driver, dir, logg, func(path string) error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}

		switch {
		case current == target:
			return nil

		case current < target:
			if err := goose.UpToContext(ctx, db, path, target); err != nil {
				return fmt.Errorf("goose up-to %d: %w", target, err)
			}
			return nil

		default:
			if err := goose.DownToContext(ctx, db, path, target); err != nil {
				return fmt.Errorf("goose down-to %d: %w", target, err)
			}
			return nil
		}
	})
}

func withGoose(ctx context.Context, driver, dir string, logg *logger.Logger, fn func(path string) error) error {
	dialect, err := Dialect(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if logg != nil {
		goose.SetLogger(newGooseLogger(ctx, logg))
	} else {
		goose.SetLogger(goose.NopLogger())
	}

	path := dir
	if dir == "" {
		sub, err := Embedded(driver)
		if err != nil {
			return err
		}
		goose.SetBaseFS(sub)
		path = "."
	} else {
		goose.SetBaseFS(nil)
	}
	defer goose.SetBaseFS(nil)

	return fn(path)
}
