// Package app assembles the gateway and runs its long-lived modules.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Module is a component with a start/stop lifecycle.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

var (
	errStarted    = errors.New("app: manager already started")
	errAddStarted = errors.New("app: cannot add modules after start")
)

// Manager starts modules in order and stops them in reverse.
type Manager struct {
	modules []Module
	mu      sync.Mutex
	started bool
	log     *logrus.Entry
}

func NewManager(mods ...Module) *Manager {
	return &Manager{modules: mods, log: logrus.WithField("component", "manager")}
}

// Add registers additional modules before Start is invoked.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errAddStarted
	}
	m.modules = append(m.modules, mod)
	return nil
}

// Start initializes all modules. If one fails, those already started are
// stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errStarted
	}

	started := make([]Module, 0, len(m.modules))
	for _, mod := range m.modules {
		if mod == nil {
			continue
		}
		if err := mod.Start(ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				started[i].Stop(ctx)
			}
			return fmt.Errorf("module %s failed: %w", mod.Name(), err)
		}
		m.log.WithField("module", mod.Name()).Info("started")
		started = append(started, mod)
	}

	m.started = true
	return nil
}

// Stop shuts down all modules in reverse order.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	for i := len(m.modules) - 1; i >= 0; i-- {
		if mod := m.modules[i]; mod != nil {
			mod.Stop(ctx)
			m.log.WithField("module", mod.Name()).Info("stopped")
		}
	}
	m.started = false
}
