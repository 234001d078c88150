package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/internal/debug"
	"github.com/satishbabariya/rwconn/query"
)

// healthCheckTimeout bounds each background ping.
const healthCheckTimeout = 5 * time.Second

// PooledClient is one physical endpoint: a database/sql pool plus the
// resolved config it was opened with.
type PooledClient interface {
	query.Executor

	// DB returns the underlying pool.
	DB() *sql.DB
	// Dialect returns the SQL flavour of the endpoint.
	Dialect() query.Dialect
	// Config returns the resolved config the pool was opened with.
	Config() config.Resolved
	// NumUsed reports the connections currently checked out.
	NumUsed() int
	// Stats returns a snapshot of pool statistics.
	Stats() PoolStats
	// HealthCheck pings the endpoint.
	HealthCheck(ctx context.Context) error
	// Close closes the pool. Calling it twice is a no-op.
	Close() error
}

// PoolStats represents pool statistics.
type PoolStats struct {
	Role               config.Role
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxLifetimeClosed  int64
	FailedHealthChecks int64
	LastHealthCheck    time.Time
}

// Pool is the PooledClient backed by *sql.DB.
type Pool struct {
	db      *sql.DB
	config  config.Resolved
	dialect query.Dialect
	logger  *slog.Logger

	mu              sync.RWMutex
	failedChecks    int64
	lastHealthCheck time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger for background health check failures. The
// default is the process logger from internal/debug.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPool wraps db, applies cfg.Pool and starts the health check loop when
// cfg.HealthCheckInterval is positive. The pool takes ownership of db.
func NewPool(db *sql.DB, cfg config.Resolved, opts ...PoolOption) (*Pool, error) {
	dialect, err := query.DialectFor(string(cfg.Client.Canonical()))
	if err != nil {
		return nil, err
	}

	// Max maps to open connections, Min to the idle connections kept warm.
	if cfg.Pool.Max > 0 {
		db.SetMaxOpenConns(cfg.Pool.Max)
	}
	if cfg.Pool.Min > 0 {
		db.SetMaxIdleConns(cfg.Pool.Min)
	}
	if cfg.Pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	}
	if cfg.Pool.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.Pool.IdleTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		db:      db,
		config:  cfg,
		dialect: dialect,
		logger:  debug.Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckLoop(cfg.HealthCheckInterval)
	}

	return p, nil
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Dialect returns the SQL flavour of the endpoint.
func (p *Pool) Dialect() query.Dialect {
	return p.dialect
}

// Config returns the resolved config.
func (p *Pool) Config() config.Resolved {
	return p.config
}

// NumUsed reports the connections currently in use.
func (p *Pool) NumUsed() int {
	return p.db.Stats().InUse
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dbStats := p.db.Stats()

	return PoolStats{
		Role:               p.config.Role,
		MaxOpenConnections: dbStats.MaxOpenConnections,
		OpenConnections:    dbStats.OpenConnections,
		InUse:              dbStats.InUse,
		Idle:               dbStats.Idle,
		WaitCount:          dbStats.WaitCount,
		WaitDuration:       dbStats.WaitDuration,
		MaxIdleClosed:      dbStats.MaxIdleClosed,
		MaxLifetimeClosed:  dbStats.MaxLifetimeClosed,
		FailedHealthChecks: p.failedChecks,
		LastHealthCheck:    p.lastHealthCheck,
	}
}

// HealthCheck pings the endpoint and records the outcome.
func (p *Pool) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	p.lastHealthCheck = time.Now()
	p.mu.Unlock()

	if err := p.db.PingContext(ctx); err != nil {
		p.mu.Lock()
		p.failedChecks++
		p.mu.Unlock()
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

func (p *Pool) healthCheckLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(p.ctx, healthCheckTimeout)
			if err := p.HealthCheck(ctx); err != nil && p.ctx.Err() == nil {
				p.logger.Warn("health check failed", "role", p.config.Role, "error", err)
			}
			cancel()
		}
	}
}

// Close stops the health check loop and closes the pool. Only the first
// call has an effect; later calls return the first result.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.cancel()
		p.wg.Wait()
		p.closeErr = p.db.Close()
	})
	return p.closeErr
}

// ExecContext executes a statement without returning rows. It fails with
// ErrPoolClosed once Close was called.
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	return p.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a statement that returns rows. It fails with
// ErrPoolClosed once Close was called.
func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	return p.db.QueryContext(ctx, query, args...)
}

var _ PooledClient = (*Pool)(nil)
