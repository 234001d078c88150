// Package connection provides a database connection that routes reads to an
// optional replica and writes to the primary.
//
// A Connection owns its pools. It is created idle, opens its pools on
// Connect and closes them on Disconnect:
//
//	conn := connection.New("primary", cfg)
//	if err := conn.Connect(); err != nil {
//		return err
//	}
//	defer conn.Disconnect()
//
//	db, err := conn.GetClient()
//	if err != nil {
//		return err
//	}
//	rows, err := db.Query().From("users").Where("active", true).All(ctx)
package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/driver"
	"github.com/satishbabariya/rwconn/internal/debug"
)

// State is the lifecycle state of a Connection.
type State int

const (
	// StateIdle is a constructed connection that never connected.
	StateIdle State = iota
	// StateConnected has a write pool and, when configured, a read pool.
	StateConnected
	// StateDisconnected was torn down. Connect may be called again.
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of the pools of a connection. Read is nil without a
// replica, both are nil when not connected.
type Stats struct {
	Write *driver.PoolStats
	Read  *driver.PoolStats
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger. The default is the process logger from
// internal/debug.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		c.logger = l
	}
}

// WithFactory sets the factory used to open pools.
func WithFactory(f driver.Factory) Option {
	return func(c *Connection) {
		c.factory = f
	}
}

// Connection is one logical database connection with a write pool and an
// optional read pool.
type Connection struct {
	name    string
	config  config.ConnectionConfig
	factory driver.Factory
	logger  *slog.Logger

	// mu guards state transitions only. It is never held across a query.
	mu     sync.Mutex
	state  State
	write  driver.PooledClient
	read   driver.PooledClient
	client *QueryClient

	events events
}

// New returns an idle connection. The config is not validated until
// Connect.
func New(name string, cfg config.ConnectionConfig, opts ...Option) *Connection {
	c := &Connection{
		name:   name,
		config: cfg,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = debug.Logger()
	}
	c.logger = c.logger.With("connection", name)
	if c.factory == nil {
		c.factory = driver.NewSQLFactory(driver.WithPoolLogger(c.logger))
	}
	return c
}

// Name returns the connection name.
func (c *Connection) Name() string {
	return c.name
}

// Config returns the unresolved config.
func (c *Connection) Config() config.ConnectionConfig {
	return c.config
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is in StateConnected.
func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// HasReadWriteReplicas reports whether a read replica is configured.
func (c *Connection) HasReadWriteReplicas() bool {
	return config.HasReadReplica(c.config)
}

// Client returns the write pool, or nil when not connected.
func (c *Connection) Client() driver.PooledClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write
}

// Pool is an alias of Client.
func (c *Connection) Pool() driver.PooledClient {
	return c.Client()
}

// ReadClient returns the read pool, or nil when none is open.
func (c *Connection) ReadClient() driver.PooledClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read
}

// On registers fn for e and returns a function that removes it.
func (c *Connection) On(e Event, fn Listener) (unsubscribe func()) {
	return c.events.subscribe(e, fn, false)
}

// Once registers fn for the next occurrence of e only.
func (c *Connection) Once(e Event, fn Listener) (unsubscribe func()) {
	return c.events.subscribe(e, fn, true)
}

// ListenerCount returns the number of listeners registered for e.
func (c *Connection) ListenerCount(e Event) int {
	return c.events.count(e)
}

// Connect opens the write pool and, when a read replica is configured, the
// read pool. It is a no-op when already connected.
//
// A factory failure is returned as *ConfigurationError and leaves the state
// unchanged. A write pool opened before a failing read pool is closed first.
// Listeners of EventConnect run before Connect returns.
func (c *Connection) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}

	write, err := c.open(config.ResolveWrite(c.config))
	if err != nil {
		c.mu.Unlock()
		return err
	}

	var read driver.PooledClient
	if config.HasReadReplica(c.config) {
		read, err = c.open(config.ResolveRead(c.config))
		if err != nil {
			c.closePool(config.RoleWrite, write)
			c.mu.Unlock()
			return err
		}
	}

	c.write, c.read = write, read
	c.client = newQueryClient(c.name, c.logger, write, read)
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("connection established", "role", c.client.Mode().String())
	c.events.emit(EventConnect, c)
	return nil
}

func (c *Connection) open(cfg config.Resolved) (driver.PooledClient, error) {
	client, err := c.factory.Open(cfg)
	if err != nil {
		return nil, &ConfigurationError{Connection: c.name, Role: cfg.Role, Err: err}
	}
	return client, nil
}

// Disconnect closes both pools and clears the handles. It is a no-op when
// not connected. Close failures are logged and do not stop the teardown, so
// the returned error is always nil. In-flight queries are not awaited.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}

	mode := c.client.Mode().String()
	c.closePool(config.RoleWrite, c.write)
	c.closePool(config.RoleRead, c.read)
	c.write, c.read, c.client = nil, nil, nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Info("connection torn down", "role", mode)
	c.events.emit(EventDisconnect, c)
	return nil
}

// Close implements io.Closer.
func (c *Connection) Close() error {
	return c.Disconnect()
}

func (c *Connection) closePool(role config.Role, p driver.PooledClient) {
	if p == nil {
		return
	}
	if err := p.Close(); err != nil {
		c.logger.Warn("closing pool failed", "role", role, "error", err)
	}
}

// GetClient returns the query client. It fails with ErrNotConnected unless
// the connection is connected.
func (c *Connection) GetClient() (*QueryClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.client == nil {
		return nil, notConnected(c.name)
	}
	return c.client, nil
}

// Ping checks the write pool and the read pool when present.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.Lock()
	write, read := c.write, c.read
	c.mu.Unlock()

	if write == nil {
		return notConnected(c.name)
	}

	var errs []error
	if err := write.HealthCheck(ctx); err != nil {
		errs = append(errs, wrap(c.name, "ping write", err))
	}
	if read != nil {
		if err := read.HealthCheck(ctx); err != nil {
			errs = append(errs, wrap(c.name, "ping read", err))
		}
	}
	return errors.Join(errs...)
}

// Stats returns the pool statistics.
func (c *Connection) Stats() Stats {
	c.mu.Lock()
	write, read := c.write, c.read
	c.mu.Unlock()

	var s Stats
	if write != nil {
		ws := write.Stats()
		s.Write = &ws
	}
	if read != nil {
		rs := read.Stats()
		s.Read = &rs
	}
	return s
}
