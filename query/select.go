package query

import (
	"context"
	"fmt"
	"strings"
)

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Column    string
	Direction string
}

// SelectQuery builds a SELECT. Nothing runs until All or First.
type SelectQuery struct {
	exec    Executor
	dialect Dialect

	table   string
	columns []string
	where   where
	orderBy []OrderBy
	limit   int
	offset  int
}

// NewSelect returns a SELECT bound to exec.
func NewSelect(exec Executor, d Dialect) *SelectQuery {
	return &SelectQuery{exec: exec, dialect: d}
}

// From sets the table.
func (q *SelectQuery) From(table string) *SelectQuery {
	q.table = table
	return q
}

// Table is an alias of From.
func (q *SelectQuery) Table(table string) *SelectQuery {
	return q.From(table)
}

// Select restricts the selected columns. No columns selects *.
func (q *SelectQuery) Select(columns ...string) *SelectQuery {
	q.columns = append(q.columns, columns...)
	return q
}

// Where adds an equality condition.
func (q *SelectQuery) Where(column string, value any) *SelectQuery {
	q.where.add(column, "=", value)
	return q
}

// WhereOp adds a condition with an explicit operator.
func (q *SelectQuery) WhereOp(column, operator string, value any) *SelectQuery {
	q.where.add(column, operator, value)
	return q
}

// WhereIn adds an IN condition.
func (q *SelectQuery) WhereIn(column string, values ...any) *SelectQuery {
	q.where.add(column, "IN", values)
	return q
}

// WhereNull adds an IS NULL condition.
func (q *SelectQuery) WhereNull(column string) *SelectQuery {
	q.where.add(column, "IS NULL", nil)
	return q
}

// WhereNotNull adds an IS NOT NULL condition.
func (q *SelectQuery) WhereNotNull(column string) *SelectQuery {
	q.where.add(column, "IS NOT NULL", nil)
	return q
}

// OrderBy adds an ordering term. direction is "asc" or "desc".
func (q *SelectQuery) OrderBy(column, direction string) *SelectQuery {
	q.orderBy = append(q.orderBy, OrderBy{Column: column, Direction: direction})
	return q
}

// Limit caps the number of rows.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

// Offset skips rows.
func (q *SelectQuery) Offset(n int) *SelectQuery {
	q.offset = n
	return q
}

// ToSQL renders the statement without running it.
func (q *SelectQuery) ToSQL() (Statement, error) {
	if q.table == "" {
		return Statement{}, ErrMissingTable
	}
	d := q.dialect
	next := 1

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.columns) == 0 {
		sb.WriteString("*")
	} else {
		cols := make([]string, len(q.columns))
		for i, c := range q.columns {
			cols[i] = d.QuoteIdent(c)
		}
		sb.WriteString(strings.Join(cols, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(d.QuoteIdent(q.table))

	cond, args, err := q.where.build(d, &next)
	if err != nil {
		return Statement{}, err
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}

	if len(q.orderBy) > 0 {
		terms := make([]string, len(q.orderBy))
		for i, ob := range q.orderBy {
			dir := "ASC"
			if strings.EqualFold(ob.Direction, "desc") {
				dir = "DESC"
			}
			terms[i] = fmt.Sprintf("%s %s", d.QuoteIdent(ob.Column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if q.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(d.Placeholder(next))
		args = append(args, q.limit)
		next++
	}
	if q.offset > 0 {
		if q.limit <= 0 {
			// mysql and sqlite reject OFFSET without LIMIT.
			switch d.Name() {
			case DialectSQLite:
				sb.WriteString(" LIMIT -1")
			case DialectMySQL:
				sb.WriteString(" LIMIT 18446744073709551615")
			}
		}
		sb.WriteString(" OFFSET ")
		sb.WriteString(d.Placeholder(next))
		args = append(args, q.offset)
	}

	return Statement{SQL: sb.String(), Args: args}, nil
}

// All runs the query and returns every row.
func (q *SelectQuery) All(ctx context.Context) ([]Row, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, q.exec, stmt)
}

// First runs the query with LIMIT 1. It returns nil, nil when nothing
// matches.
func (q *SelectQuery) First(ctx context.Context) (Row, error) {
	q.limit = 1
	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
