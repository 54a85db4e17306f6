// Package events provides the pub/sub bus carrying request lifecycle
// notifications between the engine, the web layer, and the TUI monitor.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is implemented by everything published on the bus.
type Event interface {
	EventType() string
	Timestamp() time.Time
	RequestID() string
	SessionID() string
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"timestamp"`
	Request string    `json:"request_id"`
	Session string    `json:"session_id,omitempty"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) RequestID() string    { return e.Request }
func (e BaseEvent) SessionID() string    { return e.Session }

// NewBaseEvent creates a base event stamped with the current time.
func NewBaseEvent(eventType, requestID, sessionID string) BaseEvent {
	return BaseEvent{
		Type:    eventType,
		Time:    time.Now(),
		Request: requestID,
		Session: sessionID,
	}
}

type subscriber struct {
	ch       chan Event
	types    map[string]bool // empty means all types
	session  string          // empty means all sessions
	priority bool
}

func (s *subscriber) matches(e Event) bool {
	if len(s.types) > 0 && !s.types[e.EventType()] {
		return false
	}
	if s.session != "" && s.session != e.SessionID() {
		return false
	}
	return true
}

// Bus is a pub/sub event bus with backpressure control. Regular
// subscribers get ring-buffer semantics: when a subscriber's buffer is
// full the oldest event is dropped to make room. Priority subscribers
// block the publisher instead and never lose events.
type Bus struct {
	mu           sync.RWMutex
	subs         []*subscriber
	prioritySubs []*subscriber
	bufferSize   int
	dropped      int64
	closed       bool
}

// NewBus creates a bus whose regular subscribers buffer bufferSize events.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &Bus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving events of the given types.
// With no types it receives everything. Subscribing on a closed bus
// returns an already-closed channel.
func (b *Bus) Subscribe(types ...string) <-chan Event {
	return b.subscribe("", false, types)
}

// SubscribeSession returns a channel receiving only events for the given
// session. An empty sessionID matches all sessions.
func (b *Bus) SubscribeSession(sessionID string, types ...string) <-chan Event {
	return b.subscribe(sessionID, false, types)
}

// SubscribePriority returns a blocking channel that never drops events.
// Consumers must drain it promptly or they stall publishers.
func (b *Bus) SubscribePriority() <-chan Event {
	return b.subscribe("", true, nil)
}

func (b *Bus) subscribe(sessionID string, priority bool, types []string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.bufferSize
	if priority {
		size = 32
	}
	sub := &subscriber{
		ch:       make(chan Event, size),
		types:    make(map[string]bool, len(types)),
		session:  sessionID,
		priority: priority,
	}
	for _, t := range types {
		sub.types[t] = true
	}

	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	if priority {
		b.prioritySubs = append(b.prioritySubs, sub)
	} else {
		b.subs = append(b.subs, sub)
	}
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = removeSub(b.subs, ch)
	b.prioritySubs = removeSub(b.prioritySubs, ch)
}

func removeSub(subs []*subscriber, ch <-chan Event) []*subscriber {
	kept := subs[:0]
	for _, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	return kept
}

// Publish delivers an event to matching regular subscribers. Slow
// subscribers lose their oldest buffered event rather than block.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.fanOut(event)
}

// PublishPriority delivers to regular subscribers and then blocks until
// every matching priority subscriber has accepted the event.
func (b *Bus) PublishPriority(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.fanOut(event)
	for _, sub := range b.prioritySubs {
		if sub.matches(event) {
			sub.ch <- event
		}
	}
}

// fanOut sends to regular subscribers with ring-buffer drop. Callers hold
// at least the read lock.
func (b *Bus) fanOut(event Event) {
	for _, sub := range b.subs {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Full: evict the oldest and retry once.
		select {
		case <-sub.ch:
			atomic.AddInt64(&b.dropped, 1)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			atomic.AddInt64(&b.dropped, 1)
		}
	}
}

// DroppedCount reports how many events were discarded across subscribers.
func (b *Bus) DroppedCount() int64 {
	return atomic.LoadInt64(&b.dropped)
}

// Close closes the bus and every subscriber channel. Further publishes
// are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, sub := range b.subs {
		close(sub.ch)
	}
	for _, sub := range b.prioritySubs {
		close(sub.ch)
	}
	b.subs = nil
	b.prioritySubs = nil
}
