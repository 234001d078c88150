package connection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/satishbabariya/rwconn/config"
)

// Manager keeps named connections. Each connection still owns its pools;
// the manager only indexes them.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	opts  []Option
}

// NewManager returns an empty manager. opts are applied to every connection
// it creates.
func NewManager(opts ...Option) *Manager {
	return &Manager{
		conns: make(map[string]*Connection),
		opts:  opts,
	}
}

// Add registers a connection. Adding a name twice returns the existing
// connection and ignores cfg.
func (m *Manager) Add(name string, cfg config.ConnectionConfig) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.conns[name]; ok {
		return c
	}
	c := New(name, cfg, m.opts...)
	m.conns[name] = c
	return c
}

// Patch disconnects the named connection, if any, and replaces it with a
// fresh one built from cfg. Listeners of the old connection are dropped.
func (m *Manager) Patch(name string, cfg config.ConnectionConfig) *Connection {
	m.mu.Lock()
	old := m.conns[name]
	c := New(name, cfg, m.opts...)
	m.conns[name] = c
	m.mu.Unlock()

	if old != nil {
		_ = old.Disconnect()
	}
	return c
}

// Get returns the named connection.
func (m *Manager) Get(name string) (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	return c, nil
}

// Has reports whether name is registered.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.conns[name]
	return ok
}

// IsConnected reports whether name is registered and connected.
func (m *Manager) IsConnected(name string) bool {
	c, err := m.Get(name)
	return err == nil && c.IsConnected()
}

// Connect connects the named connection.
func (m *Manager) Connect(name string) error {
	c, err := m.Get(name)
	if err != nil {
		return err
	}
	return c.Connect()
}

// Close disconnects the named connection. It stays registered.
func (m *Manager) Close(name string) error {
	c, err := m.Get(name)
	if err != nil {
		return err
	}
	return c.Disconnect()
}

// Release disconnects the named connection and removes it.
func (m *Manager) Release(name string) error {
	m.mu.Lock()
	c, ok := m.conns[name]
	delete(m.conns, name)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	return c.Disconnect()
}

// CloseAll disconnects every connection.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	var errs []error
	for _, c := range conns {
		if err := c.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
