package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Builder errors, reported by the terminal call of a handle.
var (
	// ErrMissingTable is returned when no table was given.
	ErrMissingTable = errors.New("query: table is required")

	// ErrNoValues is returned when an insert or update has nothing to write.
	ErrNoValues = errors.New("query: no values to write")

	// ErrInvalidOperator is returned for an unsupported WHERE operator.
	ErrInvalidOperator = errors.New("query: invalid operator")

	// ErrMissingWhere is returned by a delete or update without conditions
	// unless AllowAll was called.
	ErrMissingWhere = errors.New("query: refusing to touch every row without AllowAll")

	// ErrColumnMismatch is returned when inserted rows have different columns.
	ErrColumnMismatch = errors.New("query: inserted rows must share the same columns")
)

// Executor runs statements. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is one result row keyed by column name.
type Row map[string]any

// Statement is a rendered SQL statement with its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// String implements fmt.Stringer.
func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

func queryRows(ctx context.Context, exec Executor, stmt Statement) ([]Row, error) {
	rows, err := exec.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// ScanRows reads every row into a Row. []byte values become strings.
// An empty result is a non-nil, zero length slice.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
