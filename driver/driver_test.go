package driver

import (
	"context"
	"database/sql"
	"bytes"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/rwconn/config"
)

func memoryFilename() string {
	return "file:" + ulid.Make().String() + "?mode=memory&cache=shared"
}

func TestOpen_MissingClient(t *testing.T) {
	_, err := NewSQLFactory().Open(config.Resolved{Role: config.RoleWrite})
	require.Error(t, err)

	var cfgErr *DriverConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.RoleWrite, cfgErr.Role)
	assert.Equal(t, `driver: required configuration option "client" is missing`, err.Error())
	assert.ErrorIs(t, err, ErrMissingClient)
}

func TestOpen_UnsupportedClient(t *testing.T) {
	_, err := NewSQLFactory().Open(config.Resolved{Client: "oracle"})
	require.Error(t, err)
	assert.Equal(t, `driver: unsupported client "oracle"`, err.Error())
	assert.ErrorIs(t, err, ErrUnsupportedClient)
}

func TestOpen_SQLiteRequiresFilename(t *testing.T) {
	_, err := NewSQLFactory().Open(config.Resolved{Client: config.SQLite})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingOption)
	assert.Contains(t, err.Error(), `"filename"`)
}

func TestSQLDriverName(t *testing.T) {
	assert.Equal(t, "mysql", SQLDriverName("mysql2"))
	assert.Equal(t, "postgres", SQLDriverName("postgresql"))
	assert.Equal(t, "sqlite3", SQLDriverName("sqlite"))
	assert.Equal(t, "", SQLDriverName("oracle"))
}

func TestBuildDSN_MySQL(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client: config.MySQL,
		Connection: config.ConnectionParams{
			Host:     "10.0.0.1",
			User:     "app",
			Password: "secret",
			Database: "app",
			Options:  map[string]string{"parseTime": "true", "charset": "utf8mb4"},
		},
	})
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "10.0.0.1:3306", parsed.Addr)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "app", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestBuildDSN_MySQLSocket(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client:     config.MySQL,
		Connection: config.ConnectionParams{Socket: "/var/run/mysqld/mysqld.sock", User: "root"},
	})
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "unix", parsed.Net)
	assert.Equal(t, "/var/run/mysqld/mysqld.sock", parsed.Addr)
}

func TestBuildDSN_Postgres(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client: "postgres",
		Connection: config.ConnectionParams{
			Host:     "db.internal",
			Port:     6432,
			User:     "app",
			Password: "p@ss",
			Database: "app",
			Options:  map[string]string{"sslmode": "disable"},
		},
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:6432", u.Host)
	assert.Equal(t, "/app", u.Path)
	assert.Equal(t, "app", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestBuildDSN_PostgresSocket(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client:     config.PostgreSQL,
		Connection: config.ConnectionParams{Socket: "/var/run/postgresql", Database: "app"},
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Empty(t, u.Host)
	assert.Equal(t, "/var/run/postgresql", u.Query().Get("host"))
}

func TestBuildDSN_SQLite(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client: config.SQLite,
		Connection: config.ConnectionParams{
			Filename: "file:app.db?cache=shared",
			Options:  map[string]string{"_foreign_keys": "on", "_busy_timeout": "5000"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "file:app.db?cache=shared&_busy_timeout=5000&_foreign_keys=on", dsn)
}

func TestBuildDSN_URLPassthrough(t *testing.T) {
	dsn, err := BuildDSN(config.Resolved{
		Client:     config.PostgreSQL,
		Connection: config.ConnectionParams{URL: "postgres://u@h/db", Host: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h/db", dsn)
}

func TestPool_SQLiteLifecycle(t *testing.T) {
	client, err := NewSQLFactory().Open(config.Resolved{
		Role:       config.RoleWrite,
		Client:     config.SQLite,
		Connection: config.ConnectionParams{Filename: memoryFilename()},
		Pool:       config.PoolOptions{Max: 4, Min: 1},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.HealthCheck(ctx))
	assert.Equal(t, 0, client.NumUsed())
	assert.Equal(t, "sqlite", client.Dialect().Name())

	conn, err := client.DB().Conn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, client.NumUsed())
	require.NoError(t, conn.Close())
	assert.Equal(t, 0, client.NumUsed())

	stats := client.Stats()
	assert.Equal(t, config.RoleWrite, stats.Role)
	assert.Equal(t, 4, stats.MaxOpenConnections)
	assert.False(t, stats.LastHealthCheck.IsZero())

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err = client.HealthCheck(ctx)
	assert.Error(t, err)
	assert.Equal(t, int64(1), client.Stats().FailedHealthChecks)
}

func TestPool_HealthCheckLoop(t *testing.T) {
	client, err := NewSQLFactory().Open(config.Resolved{
		Client:              config.SQLite,
		Connection:          config.ConnectionParams{Filename: memoryFilename()},
		HealthCheckInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !client.Stats().LastHealthCheck.IsZero()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())
	assert.Zero(t, client.Stats().FailedHealthChecks)
}

// lockedBuffer collects log output written from the health check goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPool_HealthCheckLoopLogsFailures(t *testing.T) {
	var logs lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	client, err := NewSQLFactory(WithPoolLogger(logger)).Open(config.Resolved{
		Role:                config.RoleRead,
		Client:              config.SQLite,
		Connection:          config.ConnectionParams{Filename: memoryFilename()},
		HealthCheckInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Closing the *sql.DB underneath makes every ping fail.
	require.NoError(t, client.DB().Close())

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `"msg":"health check failed"`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), `"role":"read"`)
	assert.Positive(t, client.Stats().FailedHealthChecks)
}

func TestPool_ClosedRejectsStatements(t *testing.T) {
	client, err := NewSQLFactory().Open(config.Resolved{
		Client:     config.SQLite,
		Connection: config.ConnectionParams{Filename: memoryFilename()},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	require.NoError(t, client.Close())

	_, err = client.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = client.QueryContext(ctx, "SELECT id FROM t")
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestNewPool_UnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPool(db, config.Resolved{Client: "oracle"})
	assert.Error(t, err)
}

func TestFactoryFunc(t *testing.T) {
	called := false
	f := FactoryFunc(func(cfg config.Resolved) (PooledClient, error) {
		called = true
		assert.Equal(t, config.RoleRead, cfg.Role)
		return nil, errors.New("boom")
	})

	_, err := f.Open(config.Resolved{Role: config.RoleRead})
	assert.True(t, called)
	assert.EqualError(t, err, "boom")
}
