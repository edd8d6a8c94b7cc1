package channel

import (
	"sync"
)

// StateListener observes supervisor transitions. reason is the zero value
// for transitions not caused by a disconnect.
type StateListener func(state State, reason DisconnectReason)

// Bus fans state transitions out to listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners []StateListener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l StateListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bus) Publish(state State, reason DisconnectReason) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()

	for _, l := range listeners {
		l(state, reason)
	}
}
