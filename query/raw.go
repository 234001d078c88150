package query

import (
	"context"
	"database/sql"
)

// RawQuery is a statement passed through untouched. It targets the primary
// executor unless ReadOnly is called.
type RawQuery struct {
	primary  Executor
	readOnly Executor
	useRead  bool

	stmt Statement
}

// NewRaw returns a raw statement. readOnly may be nil, in which case
// ReadOnly keeps the statement on primary.
func NewRaw(primary, readOnly Executor, statement string, args ...any) *RawQuery {
	return &RawQuery{
		primary:  primary,
		readOnly: readOnly,
		stmt:     Statement{SQL: statement, Args: args},
	}
}

// ReadOnly marks the statement as not mutating state so it may be served by
// the read executor.
func (q *RawQuery) ReadOnly() *RawQuery {
	q.useRead = true
	return q
}

// ToSQL returns the statement.
func (q *RawQuery) ToSQL() (Statement, error) {
	return q.stmt, nil
}

func (q *RawQuery) target() Executor {
	if q.useRead && q.readOnly != nil {
		return q.readOnly
	}
	return q.primary
}

// Exec runs the statement and discards any rows.
func (q *RawQuery) Exec(ctx context.Context) (sql.Result, error) {
	return q.target().ExecContext(ctx, q.stmt.SQL, q.stmt.Args...)
}

// All runs the statement and returns its rows.
func (q *RawQuery) All(ctx context.Context) ([]Row, error) {
	return queryRows(ctx, q.target(), q.stmt)
}
