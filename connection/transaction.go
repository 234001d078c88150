package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/driver"
	"github.com/satishbabariya/rwconn/query"
)

// IsolationLevel represents transaction isolation levels
type IsolationLevel int

const (
	// ReadUncommitted allows dirty reads
	ReadUncommitted IsolationLevel = iota
	// ReadCommitted prevents dirty reads (default)
	ReadCommitted
	// RepeatableRead prevents dirty reads and non-repeatable reads
	RepeatableRead
	// Serializable prevents dirty reads, non-repeatable reads, and phantom reads
	Serializable
)

// ToSQLIsolationLevel converts IsolationLevel to sql.IsolationLevel
func (level IsolationLevel) ToSQLIsolationLevel() sql.IsolationLevel {
	switch level {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelReadCommitted
	}
}

// NewTxOptions creates sql.TxOptions from isolation level
func NewTxOptions(isolation IsolationLevel, readOnly bool) *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: isolation.ToSQLIsolationLevel(),
		ReadOnly:  readOnly,
	}
}

// TxState is the state of a Transaction.
type TxState int

const (
	// TxActive accepts statements.
	TxActive TxState = iota
	// TxCommitted was committed.
	TxCommitted
	// TxRolledBack was rolled back, or its commit failed.
	TxRolledBack
)

// String returns the state name.
func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// txResources is what a transaction must give back. It never points at the
// Transaction so it can be released by a cleanup.
type txResources struct {
	conn *sql.Conn
	tx   *sql.Tx
	once sync.Once
}

func (r *txResources) release() (err error) {
	r.once.Do(func() {
		err = r.conn.Close()
	})
	return err
}

// Transaction runs statements on one connection checked out of the write
// pool. Statements run one at a time in the order they were issued.
//
// The connection goes back to the pool exactly once, on Commit, on Rollback
// or, for a transaction that is dropped without either, when it is garbage
// collected.
type Transaction struct {
	name    string
	logger  *slog.Logger
	debug   bool
	dialect query.Dialect

	mu      sync.Mutex
	state   TxState
	depth   int
	res     *txResources
	cleanup runtime.Cleanup
}

func beginTransaction(ctx context.Context, name string, logger *slog.Logger, pool driver.PooledClient, opts *sql.TxOptions) (*Transaction, error) {
	conn, err := pool.DB().Conn(ctx)
	if err != nil {
		return nil, wrap(name, "begin", err)
	}

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		_ = conn.Close()
		return nil, wrap(name, "begin", err)
	}

	t := &Transaction{
		name:    name,
		logger:  logger.With("role", config.RoleWrite),
		debug:   pool.Config().Debug,
		dialect: pool.Dialect(),
		state:   TxActive,
		res:     &txResources{conn: conn, tx: tx},
	}
	t.cleanup = runtime.AddCleanup(t, func(r *txResources) {
		_ = r.tx.Rollback()
		_ = r.release()
	}, t.res)

	t.logger.Debug("transaction begin")
	return t, nil
}

// State returns the transaction state.
func (t *Transaction) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsCompleted reports whether the transaction was committed or rolled back.
func (t *Transaction) IsCompleted() bool {
	return t.State() != TxActive
}

// Commit commits the transaction and releases its connection. A failed
// commit still releases the connection and leaves the transaction rolled
// back.
func (t *Transaction) Commit() error {
	return t.finish(TxCommitted)
}

// Rollback rolls the transaction back and releases its connection. A
// transaction already rolled back by a cancelled context rolls back cleanly.
func (t *Transaction) Rollback() error {
	return t.finish(TxRolledBack)
}

func (t *Transaction) finish(to TxState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxActive {
		return ErrTransactionClosed
	}

	var err error
	op := "rollback"
	if to == TxCommitted {
		op = "commit"
		err = t.res.tx.Commit()
	} else if err = t.res.tx.Rollback(); errors.Is(err, sql.ErrTxDone) {
		err = nil
	}

	t.state = to
	if err != nil {
		t.state = TxRolledBack
	}
	t.cleanup.Stop()
	if relErr := t.res.release(); relErr != nil {
		t.logger.Warn("releasing transaction connection failed", "error", relErr)
	}

	if err != nil {
		return wrap(t.name, op, err)
	}
	if t.state == TxCommitted {
		t.logger.Debug("transaction committed")
	} else {
		t.logger.Debug("transaction rolled back")
	}
	return nil
}

// ExecContext runs a statement in the transaction.
func (t *Transaction) ExecContext(ctx context.Context, statement string, args ...any) (sql.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxActive {
		return nil, ErrTransactionClosed
	}
	t.logStatement(ctx, statement, args)

	res, err := t.res.tx.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, wrap(t.name, "exec", err)
	}
	return res, nil
}

// QueryContext runs a statement returning rows in the transaction.
func (t *Transaction) QueryContext(ctx context.Context, statement string, args ...any) (*sql.Rows, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxActive {
		return nil, ErrTransactionClosed
	}
	t.logStatement(ctx, statement, args)

	rows, err := t.res.tx.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, wrap(t.name, "query", err)
	}
	return rows, nil
}

func (t *Transaction) logStatement(ctx context.Context, statement string, args []any) {
	if t.debug {
		t.logger.DebugContext(ctx, "executing statement (tx)", "sql", statement, "args", args)
	}
}

// Query returns a SELECT bound to the transaction.
func (t *Transaction) Query() *query.SelectQuery {
	return query.NewSelect(t, t.dialect)
}

// InsertQuery returns an INSERT bound to the transaction.
func (t *Transaction) InsertQuery() *query.InsertQuery {
	return query.NewInsert(t, t.dialect)
}

// UpdateQuery returns an UPDATE bound to the transaction.
func (t *Transaction) UpdateQuery() *query.UpdateQuery {
	return query.NewUpdate(t, t.dialect)
}

// DeleteQuery returns a DELETE bound to the transaction.
func (t *Transaction) DeleteQuery() *query.DeleteQuery {
	return query.NewDelete(t, t.dialect)
}

// Raw returns a statement bound to the transaction. ReadOnly has no effect.
func (t *Transaction) Raw(statement string, args ...any) *query.RawQuery {
	return query.NewRaw(t, nil, statement, args...)
}

// Savepoint runs fn inside a savepoint. The savepoint is released when fn
// returns nil and rolled back to when fn returns an error or panics; the
// outer transaction stays active either way.
func (t *Transaction) Savepoint(ctx context.Context, fn TransactionFunc) error {
	t.mu.Lock()
	if t.state != TxActive {
		t.mu.Unlock()
		return ErrTransactionClosed
	}
	t.depth++
	name := fmt.Sprintf("sp_%d", t.depth)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.depth--
		t.mu.Unlock()
	}()

	if _, err := t.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = t.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		if _, rbErr := t.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint failed: %v)", err, rbErr)
		}
		return err
	}

	if _, err := t.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

var _ query.Executor = (*Transaction)(nil)
