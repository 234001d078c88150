// Package compat checks database server versions against the minimums the
// drivers are tested with.
package compat

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/rwconn/config"
)

var minimums = map[config.DriverName]string{
	config.MySQL:      "5.7.0",
	config.PostgreSQL: "10.0.0",
	config.SQLite:     "3.24.0",
}

// VersionQuery returns the statement reporting the server version.
func VersionQuery(client config.DriverName) (string, error) {
	switch client.Canonical() {
	case config.MySQL:
		return "SELECT VERSION() AS version", nil
	case config.PostgreSQL:
		return "SHOW server_version", nil
	case config.SQLite:
		return "SELECT sqlite_version() AS version", nil
	}
	return "", fmt.Errorf("unsupported client %q", client)
}

// Minimum returns the minimum server version for client.
func Minimum(client config.DriverName) (*version.Version, error) {
	floor, ok := minimums[client.Canonical()]
	if !ok {
		return nil, fmt.Errorf("unsupported client %q", client)
	}
	return version.NewVersion(floor)
}

// leading numeric part, e.g. "8.0.36" of "8.0.36-0ubuntu0.22.04.1" or
// "16.2" of "16.2 (Debian 16.2-1.pgdg120+2)".
var numeric = regexp.MustCompile(`^\d+(\.\d+)*`)

// ParseServerVersion parses the version string reported by a server.
func ParseServerVersion(raw string) (*version.Version, error) {
	m := numeric.FindString(raw)
	if m == "" {
		return nil, fmt.Errorf("invalid server version %q", raw)
	}
	v, err := version.NewVersion(m)
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", raw, err)
	}
	return v, nil
}

// Result is the outcome of Check.
type Result struct {
	Server    *version.Version
	Minimum   *version.Version
	Supported bool
}

// Check compares the raw server version against the client's minimum.
func Check(client config.DriverName, raw string) (Result, error) {
	server, err := ParseServerVersion(raw)
	if err != nil {
		return Result{}, err
	}
	floor, err := Minimum(client)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Server:    server,
		Minimum:   floor,
		Supported: server.Core().GreaterThanOrEqual(floor),
	}, nil
}
