package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// InsertQuery builds an INSERT. Nothing runs until Exec or All.
type InsertQuery struct {
	exec    Executor
	dialect Dialect

	table     string
	rows      []map[string]any
	returning []string
}

// NewInsert returns an INSERT bound to exec.
func NewInsert(exec Executor, d Dialect) *InsertQuery {
	return &InsertQuery{exec: exec, dialect: d}
}

// Table sets the target table.
func (q *InsertQuery) Table(table string) *InsertQuery {
	q.table = table
	return q
}

// Into is an alias of Table.
func (q *InsertQuery) Into(table string) *InsertQuery {
	return q.Table(table)
}

// Insert queues rows. Every row must have the same set of columns.
func (q *InsertQuery) Insert(rows ...map[string]any) *InsertQuery {
	q.rows = append(q.rows, rows...)
	return q
}

// Returning asks for the given columns back. Use All to read them.
// Supported by postgres and sqlite 3.35+.
func (q *InsertQuery) Returning(columns ...string) *InsertQuery {
	q.returning = append(q.returning, columns...)
	return q
}

// ToSQL renders the statement without running it.
func (q *InsertQuery) ToSQL() (Statement, error) {
	if q.table == "" {
		return Statement{}, ErrMissingTable
	}
	if len(q.rows) == 0 || len(q.rows[0]) == 0 {
		return Statement{}, ErrNoValues
	}
	d := q.dialect

	columns := sortedKeys(q.rows[0])
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}

	next := 1
	args := make([]any, 0, len(columns)*len(q.rows))
	tuples := make([]string, len(q.rows))
	for r, row := range q.rows {
		if len(row) != len(columns) {
			return Statement{}, ErrColumnMismatch
		}
		marks := make([]string, len(columns))
		for i, c := range columns {
			v, ok := row[c]
			if !ok {
				return Statement{}, ErrColumnMismatch
			}
			marks[i] = d.Placeholder(next)
			args = append(args, v)
			next++
		}
		tuples[r] = "(" + strings.Join(marks, ", ") + ")"
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QuoteIdent(q.table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))

	if len(q.returning) > 0 {
		ret := make([]string, len(q.returning))
		for i, c := range q.returning {
			ret[i] = d.QuoteIdent(c)
		}
		stmt += " RETURNING " + strings.Join(ret, ", ")
	}

	return Statement{SQL: stmt, Args: args}, nil
}

// Exec runs the insert.
func (q *InsertQuery) Exec(ctx context.Context) (sql.Result, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.exec.ExecContext(ctx, stmt.SQL, stmt.Args...)
}

// All runs the insert and returns the RETURNING rows.
func (q *InsertQuery) All(ctx context.Context) ([]Row, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, q.exec, stmt)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
