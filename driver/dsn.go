package driver

import (
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/rwconn/config"
)

// Default ports used when a host is given without one.
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// SQLDriverName returns the database/sql driver name registered for client.
func SQLDriverName(client config.DriverName) string {
	switch client.Canonical() {
	case config.MySQL:
		return "mysql"
	case config.PostgreSQL:
		return "postgres"
	case config.SQLite:
		return "sqlite3"
	default:
		return ""
	}
}

// BuildDSN renders the data source name for a resolved config.
// A non-empty URL is returned unchanged.
func BuildDSN(cfg config.Resolved) (string, error) {
	if err := config.Validate(cfg); err != nil {
		return "", err
	}
	if cfg.Connection.URL != "" {
		return cfg.Connection.URL, nil
	}

	switch cfg.Client.Canonical() {
	case config.MySQL:
		return mysqlDSN(cfg.Connection), nil
	case config.PostgreSQL:
		return postgresDSN(cfg.Connection), nil
	default:
		return sqliteDSN(cfg.Connection)
	}
}

func mysqlDSN(p config.ConnectionParams) string {
	c := mysql.NewConfig()
	c.User = p.User
	c.Passwd = p.Password
	c.DBName = p.Database

	if p.Socket != "" {
		c.Net = "unix"
		c.Addr = p.Socket
	} else {
		c.Net = "tcp"
		c.Addr = hostPort(p, defaultMySQLPort)
	}

	if len(p.Options) > 0 {
		c.Params = make(map[string]string, len(p.Options))
		for k, v := range p.Options {
			c.Params[k] = v
		}
	}
	return c.FormatDSN()
}

func postgresDSN(p config.ConnectionParams) string {
	u := url.URL{Scheme: "postgres"}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	if p.Database != "" {
		u.Path = "/" + p.Database
	}

	q := url.Values{}
	for k, v := range p.Options {
		q.Set(k, v)
	}
	if p.Socket != "" {
		// lib/pq takes the socket directory through the host parameter.
		q.Set("host", p.Socket)
		if p.Port != 0 {
			q.Set("port", strconv.Itoa(p.Port))
		}
	} else {
		u.Host = hostPort(p, defaultPostgresPort)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sqliteDSN(p config.ConnectionParams) (string, error) {
	if p.Filename == "" {
		return "", missingOptionError("filename")
	}
	if len(p.Options) == 0 {
		return p.Filename, nil
	}

	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = url.QueryEscape(k) + "=" + url.QueryEscape(p.Options[k])
	}

	sep := "?"
	if strings.Contains(p.Filename, "?") {
		sep = "&"
	}
	return p.Filename + sep + strings.Join(pairs, "&"), nil
}

func hostPort(p config.ConnectionParams, defaultPort int) string {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := p.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
