package events

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the channel buffer given to Subscribe.
const DefaultBufferSize = 100

// Router fans events out to subscriber channels. Delivery never blocks the
// emitter: a subscriber whose buffer is full misses the event.
type Router struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufferSize  int
	dropped     atomic.Int64
	closed      bool
}

// NewRouter returns a router whose subscriptions buffer bufferSize events.
// A non-positive size selects DefaultBufferSize.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{bufferSize: bufferSize}
}

// Emit delivers event to every subscriber. It is safe for concurrent use
// and does nothing once the router is closed.
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			r.dropped.Add(1)
			slog.Warn("event dropped: subscriber channel full",
				"event_type", event.Type(),
				"source", event.Source(),
			)
		}
	}
}

// Subscribe returns a channel receiving every later event. It is closed
// when the router closes or the subscription is cancelled.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.bufferSize)
}

// SubscribeBuffered is Subscribe with an explicit buffer size.
func (r *Router) SubscribeBuffered(size int) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, size)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Unsubscribe cancels a subscription and closes its channel. Unknown
// channels are ignored.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.subscribers, func(sub chan Event) bool { return sub == ch })
	if i < 0 {
		return
	}
	close(r.subscribers[i])
	r.subscribers = slices.Delete(r.subscribers, i, i+1)
}

// Subscribers returns the number of live subscriptions.
func (r *Router) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (r *Router) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes every subscriber channel. It is safe to call more than once.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
}
