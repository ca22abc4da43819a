package core

import (
	"sync"
	"time"
)

// Event is a UI-facing notification pushed over the websocket stream.
type Event struct {
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Detail  string    `json:"detail"`
	Created time.Time `json:"created"`
}

// EventBus fans events out to subscribers. Slow subscribers drop events
// instead of blocking the producers.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel and a function that removes it.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *EventBus) Publish(eventType, title, detail string) {
	event := Event{Type: eventType, Title: title, Detail: detail, Created: time.Now()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
