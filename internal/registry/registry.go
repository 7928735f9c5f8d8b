// Package registry defines the host component registry contract and an
// in-process implementation used by the bundled host and tests.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"coffeebreak/internal/component"
	"coffeebreak/internal/eventbus"
	logx "coffeebreak/pkg/logx"
)

var (
	ErrAlreadyRegistered = errors.New("component already registered")
	ErrNotRegistered     = errors.New("component not registered")
)

// Component is anything a plugin can contribute to the registry.
type Component interface {
	ComponentName() string
	Schema() component.Schema
}

// Registry is the host-side collaborator plugins register components with.
type Registry interface {
	Register(c Component) error
	Unregister(name string) error
	Lookup(name string) (Component, bool)
	Names() []string
}

// Memory is a concurrency-safe in-memory Registry.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Component

	log logx.Logger
	bus eventbus.Bus
}

type Option func(*Memory)

func WithLogger(log logx.Logger) Option { return func(m *Memory) { m.log = log } }

// WithBus publishes component.registered / component.unregistered events.
func WithBus(bus eventbus.Bus) Option { return func(m *Memory) { m.bus = bus } }

func NewMemory(opts ...Option) *Memory {
	m := &Memory{items: map[string]Component{}}
	for _, o := range opts {
		o(m)
	}
	if m.log.IsZero() {
		m.log = logx.Nop()
	}
	return m
}

func (m *Memory) Register(c Component) error {
	if c == nil {
		return errors.New("registry: nil component")
	}
	name := c.ComponentName()
	if name == "" {
		return errors.New("registry: component name is required")
	}
	schema := c.Schema()

	m.mu.Lock()
	if _, ok := m.items[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("registry: %s: %w", name, ErrAlreadyRegistered)
	}
	m.items[name] = c
	m.mu.Unlock()

	m.log.Debug("component registered", logx.String("component", name), logx.Int("version", schema.Version))
	m.publish(eventbus.TopicComponentRegistered, eventbus.ComponentEvent{Name: name, Version: schema.Version})
	return nil
}

func (m *Memory) Unregister(name string) error {
	m.mu.Lock()
	if _, ok := m.items[name]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("registry: %s: %w", name, ErrNotRegistered)
	}
	delete(m.items, name)
	m.mu.Unlock()

	m.log.Debug("component unregistered", logx.String("component", name))
	m.publish(eventbus.TopicComponentUnregistered, eventbus.ComponentEvent{Name: name})
	return nil
}

func (m *Memory) Lookup(name string) (Component, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.items[name]
	return c, ok
}

// Names returns registered component names, sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (m *Memory) publish(typ string, data eventbus.ComponentEvent) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
