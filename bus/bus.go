// Package bus fans out structured pipeline events (chat, moderation, AI, alerts) to
// live subscribers. Publishing never blocks: each subscriber owns a bounded backlog
// and sheds its own oldest entries when it falls behind.
package bus

import (
	"sync"
	"time"

	"github.com/streamforge/copilot/telemetry"
)

// DefaultBacklog is the per-subscriber backlog cap.
const DefaultBacklog = 50

// Event is the wire shape pushed to /ws/logs consumers, one event per frame.
type Event struct {
	Type      string         `json:"type"` // "log" | "alert"
	Category  string         `json:"category"`
	Author    string         `json:"author,omitempty"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Log builds a log-typed event stamped with the current time.
func Log(category, author, message string) Event {
	return Event{Type: "log", Category: category, Author: author, Message: message, Timestamp: time.Now().UTC()}
}

// Alert builds an alert-typed event stamped with the current time.
func Alert(category, author, message string, meta map[string]any) Event {
	return Event{Type: "alert", Category: category, Author: author, Message: message, Timestamp: time.Now().UTC(), Meta: meta}
}

// Subscription delivers events for one subscriber. Close it when done.
type Subscription struct {
	C chan Event

	bus  *Bus
	once sync.Once
}

// Close detaches the subscriber and releases its backlog.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.C)
	})
}

// Bus is a fan-out broadcaster with per-subscriber bounded backlogs.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	backlog int
	closed  bool
}

// New creates a bus with the given per-subscriber backlog (DefaultBacklog when <= 0).
func New(backlog int) *Bus {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Bus{subs: make(map[*Subscription]struct{}), backlog: backlog}
}

// Subscribe registers a new subscriber. The returned subscription's channel
// carries at most the backlog's worth of events; older events are dropped first.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, C: make(chan Event, b.backlog)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.C)
		return sub
	}
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	if telemetry.BusSubscribers != nil {
		telemetry.BusSubscribers.Set(float64(n))
	}
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()
	if telemetry.BusSubscribers != nil {
		telemetry.BusSubscribers.Set(float64(n))
	}
}

// Publish delivers the event to every subscriber without ever blocking. A full
// backlog loses its oldest entry, never the publisher.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.C <- ev:
			continue
		default:
		}
		// Backlog full: evict the oldest entry and retry once. Both channel ops
		// happen under the bus lock, so no concurrent Publish can race the slot.
		select {
		case <-sub.C:
			if telemetry.BusEventsDropped != nil {
				telemetry.BusEventsDropped.Inc()
			}
		default:
		}
		select {
		case sub.C <- ev:
		default:
		}
	}
}

// Close detaches all subscribers. Publish becomes a no-op afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()
	for _, sub := range subs {
		sub.once.Do(func() { close(sub.C) })
	}
}

// Subscribers reports the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
