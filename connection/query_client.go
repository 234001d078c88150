package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/driver"
	"github.com/satishbabariya/rwconn/query"
)

// Mode tells which pools a QueryClient routes to.
type Mode int

const (
	// ModeWrite sends everything to the write pool.
	ModeWrite Mode = iota
	// ModeDual sends reads to the read pool and the rest to the write pool.
	ModeDual
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeDual {
		return "dual"
	}
	return "write"
}

// QueryClient hands out statement handles bound to the right pool. It is
// safe for concurrent use; concurrency is handled by database/sql.
type QueryClient struct {
	name   string
	logger *slog.Logger

	write driver.PooledClient
	read  driver.PooledClient

	writeExec *executor
	readExec  *executor
}

func newQueryClient(name string, logger *slog.Logger, write, read driver.PooledClient) *QueryClient {
	q := &QueryClient{
		name:      name,
		logger:    logger,
		write:     write,
		read:      read,
		writeExec: newExecutor(name, logger, write),
	}
	if read != nil {
		q.readExec = newExecutor(name, logger, read)
	}
	return q
}

// ConnectionName returns the name of the owning connection.
func (q *QueryClient) ConnectionName() string {
	return q.name
}

// Mode returns ModeDual when a read pool is present.
func (q *QueryClient) Mode() Mode {
	if q.read != nil {
		return ModeDual
	}
	return ModeWrite
}

// Dialect returns the SQL flavour of the write pool.
func (q *QueryClient) Dialect() query.Dialect {
	return q.write.Dialect()
}

func (q *QueryClient) reader() *executor {
	if q.readExec != nil {
		return q.readExec
	}
	return q.writeExec
}

// Query returns a SELECT served by the read pool, or by the write pool when
// no replica is configured.
func (q *QueryClient) Query() *query.SelectQuery {
	r := q.reader()
	return query.NewSelect(r, r.pool.Dialect())
}

// InsertQuery returns an INSERT on the write pool.
func (q *QueryClient) InsertQuery() *query.InsertQuery {
	return query.NewInsert(q.writeExec, q.write.Dialect())
}

// UpdateQuery returns an UPDATE on the write pool.
func (q *QueryClient) UpdateQuery() *query.UpdateQuery {
	return query.NewUpdate(q.writeExec, q.write.Dialect())
}

// DeleteQuery returns a DELETE on the write pool.
func (q *QueryClient) DeleteQuery() *query.DeleteQuery {
	return query.NewDelete(q.writeExec, q.write.Dialect())
}

// Raw returns a statement on the write pool. Call ReadOnly on the result to
// send it to the read pool.
func (q *QueryClient) Raw(statement string, args ...any) *query.RawQuery {
	var readOnly query.Executor
	if q.readExec != nil {
		readOnly = q.readExec
	}
	return query.NewRaw(q.writeExec, readOnly, statement, args...)
}

// Transaction checks out a connection from the write pool and begins a
// transaction on it. A read-only opts does not move it to the replica.
// The caller must Commit or Rollback.
func (q *QueryClient) Transaction(ctx context.Context, opts *sql.TxOptions) (*Transaction, error) {
	return beginTransaction(ctx, q.name, q.logger, q.write, opts)
}

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(tx *Transaction) error

// RunInTransaction runs fn in a transaction. It commits when fn returns nil
// and rolls back when fn returns an error or panics. A panic is re-raised
// after the rollback.
func (q *QueryClient) RunInTransaction(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) error {
	tx, err := q.Transaction(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, ErrTransactionClosed) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	// fn may have finished the transaction itself.
	if err := tx.Commit(); err != nil && !errors.Is(err, ErrTransactionClosed) {
		return err
	}
	return nil
}

// executor runs statements on one pool, adding the connection name to
// driver errors and logging statements when the pool config asks for it.
type executor struct {
	name   string
	role   config.Role
	logger *slog.Logger
	debug  bool
	pool   driver.PooledClient
}

func newExecutor(name string, logger *slog.Logger, pool driver.PooledClient) *executor {
	cfg := pool.Config()
	return &executor{
		name:   name,
		role:   cfg.Role,
		logger: logger,
		debug:  cfg.Debug,
		pool:   pool,
	}
}

func (e *executor) ExecContext(ctx context.Context, statement string, args ...any) (sql.Result, error) {
	e.logStatement(ctx, statement, args)
	res, err := e.pool.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, wrap(e.name, "exec", err)
	}
	return res, nil
}

func (e *executor) QueryContext(ctx context.Context, statement string, args ...any) (*sql.Rows, error) {
	e.logStatement(ctx, statement, args)
	rows, err := e.pool.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, wrap(e.name, "query", err)
	}
	return rows, nil
}

func (e *executor) logStatement(ctx context.Context, statement string, args []any) {
	if e.debug {
		e.logger.DebugContext(ctx, "executing statement", "role", e.role, "sql", statement, "args", args)
	}
}
