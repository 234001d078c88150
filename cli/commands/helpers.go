package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/satishbabariya/rwconn/cli/internal/config"
	core "github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/connection"
	"github.com/satishbabariya/rwconn/query"
)

const commandTimeout = 30 * time.Second

// selected loads the config file and picks the connection named by
// --connection.
func (o *options) selected() (*config.File, string, core.ConnectionConfig, error) {
	f, err := config.Load(o.configPath)
	if err != nil {
		return nil, "", core.ConnectionConfig{}, err
	}
	name, cfg, err := f.Connection(o.connection)
	if err != nil {
		return nil, "", core.ConnectionConfig{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	if o.debug {
		cfg.Debug = true
	}
	return f, name, cfg, nil
}

// connect opens the selected connection. Callers must Disconnect it.
func (o *options) connect() (*connection.Connection, *connection.QueryClient, error) {
	_, name, cfg, err := o.selected()
	if err != nil {
		return nil, nil, err
	}

	c := connection.New(name, cfg)
	if err := c.Connect(); err != nil {
		return nil, nil, err
	}
	client, err := c.GetClient()
	if err != nil {
		_ = c.Disconnect()
		return nil, nil, err
	}
	return c, client, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, commandTimeout)
}

// statementArgs turns positional arguments into bind values.
func statementArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// tabulate returns sorted column headers and stringified cells.
func tabulate(rows []query.Row) ([]string, [][]string) {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	headers := make([]string, 0, len(seen))
	for col := range seen {
		headers = append(headers, col)
	}
	sort.Strings(headers)

	cells := make([][]string, len(rows))
	for i, row := range rows {
		line := make([]string, len(headers))
		for j, col := range headers {
			line[j] = cell(row[col])
		}
		cells[i] = line
	}
	return headers, cells
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// firstValue returns the single value of a one row, one column result.
func firstValue(rows []query.Row) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	for _, v := range rows[0] {
		return cell(v), true
	}
	return "", false
}
