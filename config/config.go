// Package config defines connection configuration and resolves it into
// per-role driver configs.
package config

import (
	"strings"
	"time"
)

// DriverName names a database client.
type DriverName string

// Supported clients. Aliases are accepted and mapped by Canonical.
const (
	// MySQL selects github.com/go-sql-driver/mysql.
	MySQL DriverName = "mysql"
	// PostgreSQL selects github.com/lib/pq.
	PostgreSQL DriverName = "pg"
	// SQLite selects github.com/mattn/go-sqlite3.
	SQLite DriverName = "sqlite3"
)

var driverAliases = map[string]DriverName{
	"mysql":      MySQL,
	"mysql2":     MySQL,
	"pg":         PostgreSQL,
	"postgres":   PostgreSQL,
	"postgresql": PostgreSQL,
	"sqlite3":    SQLite,
	"sqlite":     SQLite,
}

// Canonical maps an alias to its canonical driver name.
// It returns "" when the name is not supported.
func (d DriverName) Canonical() DriverName {
	return driverAliases[strings.ToLower(strings.TrimSpace(string(d)))]
}

// Supported reports whether the name maps to a known driver.
func (d DriverName) Supported() bool {
	return d.Canonical() != ""
}

// String implements fmt.Stringer.
func (d DriverName) String() string {
	return string(d)
}

// ConnectionParams describes how to reach one endpoint.
// A zero field is treated as absent when merging.
type ConnectionParams struct {
	// URL is a full connection string. When set it is handed to the driver
	// as is and the discrete fields are ignored.
	URL string `mapstructure:"url" yaml:"url,omitempty"`

	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`

	// Filename is the database file for sqlite3. ":memory:" and "file:" URIs
	// are accepted.
	Filename string `mapstructure:"filename" yaml:"filename,omitempty"`

	// Socket is a unix socket path (mysql, postgres).
	Socket string `mapstructure:"socket" yaml:"socket,omitempty"`

	// Options are driver parameters such as charset, sslmode or parseTime.
	Options map[string]string `mapstructure:"options" yaml:"options,omitempty"`
}

// IsZero reports whether no field is set.
func (p ConnectionParams) IsZero() bool {
	return p.URL == "" && p.Host == "" && p.Port == 0 && p.User == "" &&
		p.Password == "" && p.Database == "" && p.Filename == "" &&
		p.Socket == "" && len(p.Options) == 0
}

// Override replaces parts of the base connection for the write role.
type Override struct {
	Connection ConnectionParams `mapstructure:"connection" yaml:"connection"`
}

// ReadOverride replaces parts of the base connection for the read role.
// Only the first entry is used by ResolveRead.
type ReadOverride struct {
	Connection []ConnectionParams `mapstructure:"connection" yaml:"connection"`
}

// Replicas holds the per-role overrides.
type Replicas struct {
	Write *Override     `mapstructure:"write" yaml:"write,omitempty"`
	Read  *ReadOverride `mapstructure:"read" yaml:"read,omitempty"`
}

// PoolOptions configures the database/sql pool of one endpoint.
type PoolOptions struct {
	// Min is the number of idle connections kept open.
	Min int `mapstructure:"min" yaml:"min,omitempty"`
	// Max is the maximum number of open connections (0 = unlimited).
	Max int `mapstructure:"max" yaml:"max,omitempty"`
	// MaxLifetime is the maximum lifetime of a connection.
	MaxLifetime time.Duration `mapstructure:"max_lifetime" yaml:"max_lifetime,omitempty"`
	// IdleTimeout is the maximum idle time of a connection.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout,omitempty"`
}

// ConnectionConfig is the full configuration of one logical connection.
type ConnectionConfig struct {
	Client     DriverName       `mapstructure:"client" yaml:"client"`
	Connection ConnectionParams `mapstructure:"connection" yaml:"connection"`
	Replicas   *Replicas        `mapstructure:"replicas" yaml:"replicas,omitempty"`
	Pool       *PoolOptions     `mapstructure:"pool" yaml:"pool,omitempty"`

	// Debug enables statement logging at debug level.
	Debug bool `mapstructure:"debug" yaml:"debug,omitempty"`

	// HealthCheckInterval starts a background ping per pool when > 0.
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval,omitempty"`
}

// Role identifies which endpoint a resolved config targets.
type Role string

const (
	// RoleWrite is the primary endpoint.
	RoleWrite Role = "write"
	// RoleRead is the replica endpoint.
	RoleRead Role = "read"
)

// Resolved is a fully merged config ready for the driver factory.
type Resolved struct {
	Role       Role
	Client     DriverName
	Connection ConnectionParams
	Pool       PoolOptions

	Debug               bool
	HealthCheckInterval time.Duration
}
