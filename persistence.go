package credstore

import (
	"context"
	"database/sql"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// Open connects to the configured database, runs migrations when enabled and
// returns the bun handle. The caller owns the returned DB.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid store configuration")
	}

	sqlDB, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to open database")
	}

	if cfg.Migrate {
		if err := Migrate(ctx, sqlDB, cfg.Driver); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	return bun.NewDB(sqlDB, dialect), nil
}

func openSQL(cfg Config) (*sql.DB, schema.Dialect, error) {
	switch cfg.Driver {
	case DriverSQLite:
		db, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		return db, sqlitedialect.New(), nil
	case DriverPostgres:
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, pgdialect.New(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// Migrate applies the embedded migrations for driver
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	fsys, err := DialectMigrationsFS(driver)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	dialect := goose.DialectSQLite3
	if driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create migration provider")
	}

	if _, err := provider.Up(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return nil
}
