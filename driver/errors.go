package driver

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/rwconn/config"
)

var (
	// ErrMissingClient is returned when a config names no client.
	ErrMissingClient = config.ErrMissingClient

	// ErrUnsupportedClient is returned for a client with no registered driver.
	ErrUnsupportedClient = config.ErrUnsupportedClient

	// ErrMissingOption is returned when a driver specific option is required
	// but absent, e.g. the sqlite3 filename.
	ErrMissingOption = errors.New("required configuration option is missing")

	// ErrPoolClosed is returned by statements run on a pool after Close.
	ErrPoolClosed = errors.New("driver: pool is closed")
)

// DriverConfigurationError reports a config the driver factory refused.
type DriverConfigurationError struct {
	Client config.DriverName
	Role   config.Role
	Err    error
}

// Error implements the error interface.
func (e *DriverConfigurationError) Error() string {
	return "driver: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DriverConfigurationError) Unwrap() error {
	return e.Err
}

func configurationError(cfg config.Resolved, err error) *DriverConfigurationError {
	return &DriverConfigurationError{Client: cfg.Client, Role: cfg.Role, Err: err}
}

// missingOptionError names the absent option and matches ErrMissingOption.
type missingOptionError string

func (e missingOptionError) Error() string {
	return fmt.Sprintf("required configuration option %q is missing", string(e))
}

func (e missingOptionError) Is(target error) bool {
	return target == ErrMissingOption
}
