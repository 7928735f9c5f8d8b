package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	comps, unsubComps := b.Subscribe(4, TopicComponentRegistered, TopicComponentUnregistered)
	defer unsubComps()

	b.Publish(Event{Type: TopicComponentRegistered, Data: ComponentEvent{Name: "Schedule", Version: 3}})
	b.Publish(Event{Type: TopicScheduleGrouped, Data: GroupedEvent{Groups: 2}})

	if got := len(all); got != 2 {
		t.Fatalf("unfiltered subscriber got %d events, want 2", got)
	}
	if got := len(comps); got != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", got)
	}
	ev := <-comps
	if ev.Type != TopicComponentRegistered {
		t.Fatalf("Type = %s", ev.Type)
	}
	if ev.Time.IsZero() {
		t.Fatal("Publish should stamp Time")
	}
	if ce, ok := ev.Data.(ComponentEvent); !ok || ce.Name != "Schedule" {
		t.Fatalf("unexpected payload %#v", ev.Data)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: TopicConfigApplied})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if Dropped(b) != 9 {
		t.Fatalf("Dropped = %d, want 9", Dropped(b))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: TopicConfigApplied})
}
