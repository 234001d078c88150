package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// UpdateQuery builds an UPDATE. Nothing runs until Exec.
type UpdateQuery struct {
	exec    Executor
	dialect Dialect

	table    string
	set      map[string]any
	where    where
	allowAll bool
}

// NewUpdate returns an UPDATE bound to exec.
func NewUpdate(exec Executor, d Dialect) *UpdateQuery {
	return &UpdateQuery{exec: exec, dialect: d, set: map[string]any{}}
}

// Table sets the target table.
func (q *UpdateQuery) Table(table string) *UpdateQuery {
	q.table = table
	return q
}

// Set assigns a column.
func (q *UpdateQuery) Set(column string, value any) *UpdateQuery {
	q.set[column] = value
	return q
}

// Update assigns every column of values.
func (q *UpdateQuery) Update(values map[string]any) *UpdateQuery {
	for k, v := range values {
		q.set[k] = v
	}
	return q
}

// Where adds an equality condition.
func (q *UpdateQuery) Where(column string, value any) *UpdateQuery {
	q.where.add(column, "=", value)
	return q
}

// WhereOp adds a condition with an explicit operator.
func (q *UpdateQuery) WhereOp(column, operator string, value any) *UpdateQuery {
	q.where.add(column, operator, value)
	return q
}

// WhereIn adds an IN condition.
func (q *UpdateQuery) WhereIn(column string, values ...any) *UpdateQuery {
	q.where.add(column, "IN", values)
	return q
}

// AllowAll permits an update without conditions.
func (q *UpdateQuery) AllowAll() *UpdateQuery {
	q.allowAll = true
	return q
}

// ToSQL renders the statement without running it.
func (q *UpdateQuery) ToSQL() (Statement, error) {
	if q.table == "" {
		return Statement{}, ErrMissingTable
	}
	if len(q.set) == 0 {
		return Statement{}, ErrNoValues
	}
	if q.where.empty() && !q.allowAll {
		return Statement{}, ErrMissingWhere
	}
	d := q.dialect

	next := 1
	columns := sortedKeys(q.set)
	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns))
	for i, c := range columns {
		assignments[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c), d.Placeholder(next))
		args = append(args, q.set[c])
		next++
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s", d.QuoteIdent(q.table), strings.Join(assignments, ", "))

	cond, condArgs, err := q.where.build(d, &next)
	if err != nil {
		return Statement{}, err
	}
	if cond != "" {
		stmt += " WHERE " + cond
		args = append(args, condArgs...)
	}

	return Statement{SQL: stmt, Args: args}, nil
}

// Exec runs the update.
func (q *UpdateQuery) Exec(ctx context.Context) (sql.Result, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.exec.ExecContext(ctx, stmt.SQL, stmt.Args...)
}

// DeleteQuery builds a DELETE. Nothing runs until Exec.
type DeleteQuery struct {
	exec    Executor
	dialect Dialect

	table    string
	where    where
	allowAll bool
}

// NewDelete returns a DELETE bound to exec.
func NewDelete(exec Executor, d Dialect) *DeleteQuery {
	return &DeleteQuery{exec: exec, dialect: d}
}

// From sets the target table.
func (q *DeleteQuery) From(table string) *DeleteQuery {
	q.table = table
	return q
}

// Table is an alias of From.
func (q *DeleteQuery) Table(table string) *DeleteQuery {
	return q.From(table)
}

// Where adds an equality condition.
func (q *DeleteQuery) Where(column string, value any) *DeleteQuery {
	q.where.add(column, "=", value)
	return q
}

// WhereOp adds a condition with an explicit operator.
func (q *DeleteQuery) WhereOp(column, operator string, value any) *DeleteQuery {
	q.where.add(column, operator, value)
	return q
}

// WhereIn adds an IN condition.
func (q *DeleteQuery) WhereIn(column string, values ...any) *DeleteQuery {
	q.where.add(column, "IN", values)
	return q
}

// AllowAll permits a delete without conditions.
func (q *DeleteQuery) AllowAll() *DeleteQuery {
	q.allowAll = true
	return q
}

// ToSQL renders the statement without running it.
func (q *DeleteQuery) ToSQL() (Statement, error) {
	if q.table == "" {
		return Statement{}, ErrMissingTable
	}
	if q.where.empty() && !q.allowAll {
		return Statement{}, ErrMissingWhere
	}
	d := q.dialect

	next := 1
	stmt := "DELETE FROM " + d.QuoteIdent(q.table)
	cond, args, err := q.where.build(d, &next)
	if err != nil {
		return Statement{}, err
	}
	if cond != "" {
		stmt += " WHERE " + cond
	}
	return Statement{SQL: stmt, Args: args}, nil
}

// Exec runs the delete.
func (q *DeleteQuery) Exec(ctx context.Context) (sql.Result, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.exec.ExecContext(ctx, stmt.SQL, stmt.Args...)
}
