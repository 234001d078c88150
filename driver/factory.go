// Package driver opens database/sql pools for resolved connection configs.
//
// The mysql, postgres and sqlite3 drivers are registered by this package.
package driver

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/satishbabariya/rwconn/config"
)

// Factory opens a PooledClient for a resolved config.
type Factory interface {
	Open(cfg config.Resolved) (PooledClient, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(cfg config.Resolved) (PooledClient, error)

// Open calls f(cfg).
func (f FactoryFunc) Open(cfg config.Resolved) (PooledClient, error) {
	return f(cfg)
}

// SQLFactory opens pools through database/sql.
type SQLFactory struct {
	open     func(driverName, dataSourceName string) (*sql.DB, error)
	poolOpts []PoolOption
}

// NewSQLFactory returns the default factory. opts are applied to every pool
// it opens.
func NewSQLFactory(opts ...PoolOption) *SQLFactory {
	return &SQLFactory{open: sql.Open, poolOpts: opts}
}

// Open validates cfg, builds its DSN and opens a pool. No connection is made
// until the pool is first used. Config problems are reported as
// *DriverConfigurationError.
func (f *SQLFactory) Open(cfg config.Resolved) (PooledClient, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, configurationError(cfg, err)
	}

	db, err := f.open(SQLDriverName(cfg.Client), dsn)
	if err != nil {
		return nil, configurationError(cfg, err)
	}

	pool, err := NewPool(db, cfg, f.poolOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s pool: %w", cfg.Role, err)
	}
	return pool, nil
}

var _ Factory = (*SQLFactory)(nil)
