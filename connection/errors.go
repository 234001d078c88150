package connection

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/rwconn/config"
)

// Error types for connection operations.
var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid connection configuration")

	// ErrNotConnected is returned when a client is requested before Connect
	// or after Disconnect.
	ErrNotConnected = errors.New("connection is not connected")

	// ErrTransactionClosed is returned by any operation on a transaction
	// that was already committed or rolled back.
	ErrTransactionClosed = errors.New("transaction has already been committed or rolled back")

	// ErrUnknownConnection is returned by the manager for a name it does not
	// hold.
	ErrUnknownConnection = errors.New("connection is not registered")
)

// ConfigurationError is returned by Connect when the driver factory rejects
// a resolved config. The factory message is kept verbatim.
type ConfigurationError struct {
	Connection string
	Role       config.Role
	Err        error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("connection %q (%s): %v", e.Connection, e.Role, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Error attaches the connection name and operation to an error returned by
// the pool or driver. The driver error stays reachable with errors.Is and
// errors.As.
type Error struct {
	Connection string
	Op         string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("connection %q: %s: %v", e.Connection, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(name, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Connection: name, Op: op, Err: err}
}

func notConnected(name string) error {
	return &Error{Connection: name, Op: "get client", Err: ErrNotConnected}
}

// IsNotConnected checks if an error is a not connected error.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsTransactionClosed checks if an error is a closed transaction error.
func IsTransactionClosed(err error) bool {
	return errors.Is(err, ErrTransactionClosed)
}
