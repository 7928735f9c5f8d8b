// Package eventbus is a small in-process fanout used to decouple the plugin,
// the registry and host observers.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topics published by this module.
const (
	TopicComponentRegistered   = "component.registered"
	TopicComponentUnregistered = "component.unregistered"
	TopicScheduleGrouped       = "schedule.grouped"
	TopicConfigApplied         = "config.applied"
)

// Event is a lightweight, in-memory signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers get buffered channels; slow subscribers drop events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// ComponentEvent is the payload of component.* topics.
type ComponentEvent struct {
	Name    string `json:"name"`
	Version int    `json:"version,omitempty"`
}

// GroupedEvent is the payload of schedule.grouped.
type GroupedEvent struct {
	Activities int   `json:"activities"`
	Groups     int   `json:"groups"`
	Standalone int   `json:"standalone"`
	Invalid    int   `json:"invalid"`
	Cached     bool  `json:"cached"`
	TookMS     int64 `json:"took_ms"`
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel receiving events whose Type is in topics
	// (all events when topics is empty) and a function that closes it.
	Subscribe(buffer int, topics ...string) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]*subscriber{}}
}

type subscriber struct {
	ch     chan Event
	topics map[string]struct{}
}

func (s *subscriber) wants(typ string) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[typ]
	return ok
}

type memBus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Type) {
			targets = append(targets, s.ch)
		}
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		// A concurrent unsubscribe may close ch; recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				b.dropped.Add(1)
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int, topics ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsub
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func Dropped(b Bus) uint64 {
	if mb, ok := b.(*memBus); ok {
		return mb.dropped.Load()
	}
	return 0
}
