// Package events fans domain notifications out to presentation consumers.
package events

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
)

// Kind names a domain event.
type Kind string

const (
	KindHuntChanged           Kind = "hunt_changed"
	KindRecordsInserted       Kind = "records_inserted"
	KindViewPreferenceChanged Kind = "view_preference_changed"
	KindPersistenceFailed     Kind = "persistence_failed"
)

// Event is one notification. Fields unused by a kind stay zero.
type Event struct {
	Kind    Kind               `json:"kind"`
	At      time.Time          `json:"at"`
	HuntID  int64              `json:"hunt_id,omitempty"`
	Records []encounter.Record `json:"records,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Bus delivers events to every subscriber without ever blocking the publisher.
// A subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish sends e to all subscribers (non-blocking).
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
