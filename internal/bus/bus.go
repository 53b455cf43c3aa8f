// Package bus is the in-process publish/subscribe channel behind the push
// supplement. Sends never block: a subscriber that cannot keep up loses
// events, and correctness is preserved by the reconciliation poller.
package bus

import (
	"strings"
	"sync"
)

type subscriber struct {
	prefix string
	ch     chan Event
}

// Bus fans events out to subscribers whose prefix matches the event topic.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix is a prefix of the
// event topic, dropping it for subscribers with a full buffer.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Topic, sub.prefix) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe returns a buffered channel receiving events whose topic starts
// with prefix, and a function that releases the subscription. Callers own the
// returned cancel func and must invoke it on view teardown so no orphaned
// subscriptions accumulate.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
