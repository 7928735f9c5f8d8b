package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeebreak/internal/component"
	"coffeebreak/internal/eventbus"
)

type fakeComponent struct {
	name    string
	version int
}

func (f fakeComponent) ComponentName() string { return f.name }
func (f fakeComponent) Schema() component.Schema {
	return component.Schema{Name: f.name, Version: f.version}
}

func TestRegisterLookupUnregister(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	reg := NewMemory(WithBus(bus))
	require.NoError(t, reg.Register(fakeComponent{name: "Schedule", version: 3}))

	c, ok := reg.Lookup("Schedule")
	require.True(t, ok)
	assert.Equal(t, 3, c.Schema().Version)
	assert.Equal(t, []string{"Schedule"}, reg.Names())

	require.NoError(t, reg.Unregister("Schedule"))
	_, ok = reg.Lookup("Schedule")
	assert.False(t, ok)

	require.Len(t, events, 2)
	ev := <-events
	assert.Equal(t, eventbus.TopicComponentRegistered, ev.Type)
	assert.Equal(t, eventbus.ComponentEvent{Name: "Schedule", Version: 3}, ev.Data)
	ev = <-events
	assert.Equal(t, eventbus.TopicComponentUnregistered, ev.Type)
}

func TestRegisterErrors(t *testing.T) {
	reg := NewMemory()
	require.NoError(t, reg.Register(fakeComponent{name: "Schedule"}))

	err := reg.Register(fakeComponent{name: "Schedule"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(fakeComponent{}))

	err = reg.Unregister("Agenda")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestConcurrentRegistration(t *testing.T) {
	reg := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("C%02d", i)
			_ = reg.Register(fakeComponent{name: name})
			_, _ = reg.Lookup(name)
		}(i)
	}
	wg.Wait()
	assert.Len(t, reg.Names(), 32)
	assert.Equal(t, "C00", reg.Names()[0])
}
