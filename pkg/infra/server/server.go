// Package server runs the HTTP listener and releases the service's
// backing components when it shuts down.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// Runnable is a named component with a start/stop lifecycle.
// Start returns once the component accepts work.
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CloseFunc 在所有服务停止后释放资源。
type CloseFunc func(ctx context.Context) error

// CloserFunc adapts an io.Closer to a CloseFunc.
func CloserFunc(c io.Closer) CloseFunc {
	return func(context.Context) error {
		return c.Close()
	}
}

// Manager starts servers in order, stops them in reverse order and then
// runs the registered close functions.
type Manager struct {
	shutdownTimeout time.Duration

	mu      sync.Mutex
	servers []Runnable
	closers []namedCloser
	started []Runnable
	running bool
}

type namedCloser struct {
	name string
	fn   CloseFunc
}

// NewManager creates a manager. shutdownTimeout bounds Stop when Run exits.
func NewManager(shutdownTimeout time.Duration) *Manager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &Manager{shutdownTimeout: shutdownTimeout}
}

// AddServer adds a server to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// OnStop 注册停止后执行的清理函数，按注册的逆序执行。
func (m *Manager) OnStop(name string, fn CloseFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closers = append(m.closers, namedCloser{name: name, fn: fn})
}

// Start starts all servers. 任一失败时已启动的服务会被停止。
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("server manager already started")
	}

	for _, s := range m.servers {
		if err := s.Start(ctx); err != nil {
			for i := len(m.started) - 1; i >= 0; i-- {
				_ = m.started[i].Stop(ctx)
			}
			m.started = nil
			return fmt.Errorf("failed to start server %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		logger.Infow("Server started", "name", s.Name())
	}
	m.running = true
	return nil
}

// Stop stops started servers and runs the close functions.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	closers := m.closers
	m.started = nil
	m.closers = nil
	m.running = false
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", started[i].Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", started[i].Name())
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", closers[i].name, err))
		}
	}
	return stderrors.Join(errs...)
}

// Run starts all servers, blocks until ctx is done and then shuts down
// within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		_ = m.Stop(context.Background())
		return err
	}

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	return m.Stop(shutdownCtx)
}
