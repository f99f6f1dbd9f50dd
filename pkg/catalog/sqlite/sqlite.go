// Package sqlite provides the SQLite-backed catalog driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/catalog/sqldriver"
)

// Ensure Driver implements catalog.Catalog
var _ catalog.Catalog = (*Driver)(nil)

// Driver is the SQLite catalog.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver opens (or creates) the catalog database at path and runs
// migrations. Use ":memory:" for an in-memory catalog.
func NewDriver(ctx context.Context, path string, logger *zap.Logger) (*Driver, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	// Serialized access keeps the single-writer model simple; the
	// engine is the only process touching the file.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	d := &Driver{
		Driver: &sqldriver.Driver{
			DB:      db,
			Dialect: sqldriver.DialectSQLite,
			Logger:  logger,
		},
	}

	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite catalog ready", zap.String("path", path))

	return d, nil
}
