package config

import (
	"errors"
	"fmt"
)

// Validation errors returned by Validate.
var (
	// ErrMissingClient is returned when no client is configured.
	ErrMissingClient = errors.New(`required configuration option "client" is missing`)

	// ErrUnsupportedClient is returned when the client is not known.
	ErrUnsupportedClient = errors.New("unsupported client")
)

// ResolveWrite returns the config for the write endpoint.
//
// Fields of replicas.write.connection win over the base connection key by
// key; absent fields fall back to the base.
func ResolveWrite(cfg ConnectionConfig) Resolved {
	resolved := base(cfg, RoleWrite)
	if cfg.Replicas != nil && cfg.Replicas.Write != nil {
		resolved.Connection = MergeParams(cfg.Connection, cfg.Replicas.Write.Connection)
	}
	return resolved
}

// ResolveRead returns the config for the read endpoint.
//
// The merge source is the first entry of replicas.read.connection. Selection
// is deterministic; resolution keeps no state between calls.
func ResolveRead(cfg ConnectionConfig) Resolved {
	resolved := base(cfg, RoleRead)
	if HasReadReplica(cfg) {
		resolved.Connection = MergeParams(cfg.Connection, cfg.Replicas.Read.Connection[0])
	}
	return resolved
}

// HasReadReplica reports whether a read override is configured.
func HasReadReplica(cfg ConnectionConfig) bool {
	return cfg.Replicas != nil && cfg.Replicas.Read != nil && len(cfg.Replicas.Read.Connection) > 0
}

// MergeParams overlays override on base. Non-zero override fields win and
// Options are merged key by key into a new map. Neither input is modified.
func MergeParams(base, override ConnectionParams) ConnectionParams {
	merged := base
	if override.URL != "" {
		merged.URL = override.URL
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Filename != "" {
		merged.Filename = override.Filename
	}
	if override.Socket != "" {
		merged.Socket = override.Socket
	}
	merged.Options = mergeOptions(base.Options, override.Options)
	return merged
}

func mergeOptions(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Validate checks that cfg names a supported client.
func Validate(cfg Resolved) error {
	if cfg.Client == "" {
		return ErrMissingClient
	}
	if !cfg.Client.Supported() {
		return fmt.Errorf("%w %q", ErrUnsupportedClient, cfg.Client)
	}
	return nil
}

func base(cfg ConnectionConfig, role Role) Resolved {
	resolved := Resolved{
		Role:                role,
		Client:              cfg.Client,
		Connection:          MergeParams(cfg.Connection, ConnectionParams{}),
		Debug:               cfg.Debug,
		HealthCheckInterval: cfg.HealthCheckInterval,
	}
	if cfg.Pool != nil {
		resolved.Pool = *cfg.Pool
	}
	return resolved
}
