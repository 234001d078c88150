// Package query provides lazily executed statement handles bound to an
// Executor.
package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect renders placeholders and identifiers for one SQL flavour.
type Dialect interface {
	// Name returns the dialect name.
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// QuoteIdent quotes a possibly qualified identifier.
	QuoteIdent(name string) string
}

// Dialect names.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// DialectFor returns the dialect with the given name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DialectPostgres, "postgresql", "pg":
		return postgres{}, nil
	case DialectMySQL:
		return mysql{}, nil
	case DialectSQLite, "sqlite3":
		return sqlite{}, nil
	default:
		return nil, fmt.Errorf("query: unknown dialect %q", name)
	}
}

type postgres struct{}

func (postgres) Name() string { return DialectPostgres }

func (postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgres) QuoteIdent(name string) string {
	return quoteParts(name, pq.QuoteIdentifier)
}

type mysql struct{}

func (mysql) Name() string { return DialectMySQL }

func (mysql) Placeholder(int) string { return "?" }

func (mysql) QuoteIdent(name string) string {
	return quoteParts(name, func(part string) string {
		return "`" + strings.ReplaceAll(part, "`", "``") + "`"
	})
}

type sqlite struct{}

func (sqlite) Name() string { return DialectSQLite }

func (sqlite) Placeholder(int) string { return "?" }

func (sqlite) QuoteIdent(name string) string {
	return quoteParts(name, func(part string) string {
		return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	})
}

// quoteParts quotes each dot separated part of name, leaving "*" bare.
func quoteParts(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = quote(part)
	}
	return strings.Join(parts, ".")
}
