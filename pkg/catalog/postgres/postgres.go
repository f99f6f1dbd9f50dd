// Package postgres provides the PostgreSQL-backed catalog driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/catalog/sqldriver"
)

// Ensure Driver implements catalog.Catalog
var _ catalog.Catalog = (*Driver)(nil)

// Driver is the PostgreSQL catalog.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver connects to the database named by dsn and runs migrations.
func NewDriver(ctx context.Context, dsn string, logger *zap.Logger) (*Driver, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	d := &Driver{
		Driver: &sqldriver.Driver{
			DB:      db,
			Dialect: sqldriver.DialectPostgres,
			Logger:  logger,
		},
	}

	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("postgres catalog ready")

	return d, nil
}
