package progress

import (
	"sync"

	"tube-transcriber/internal/domain"
)

// Reporter fans job snapshots out to subscribers. Delivery is
// last-value-wins: each subscriber holds at most one pending snapshot, and a
// newer one replaces it if the subscriber has not caught up. No history is
// kept; a reconnecting observer queries current state from the registry.
type Reporter struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.Job
	closed bool
}

// NewReporter creates a reporter with no subscribers.
func NewReporter() *Reporter {
	return &Reporter{subs: make(map[int]chan domain.Job)}
}

// Subscribe registers an observer and returns its snapshot channel together
// with an unsubscribe function. The channel is closed on unsubscribe or when
// the reporter shuts down.
func (r *Reporter) Subscribe() (<-chan domain.Job, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan domain.Job, 1)
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	r.nextID++
	id := r.nextID
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// Publish delivers a snapshot to every subscriber without blocking. A
// subscriber that has not consumed its previous snapshot only sees the
// newest one.
func (r *Reporter) Publish(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- job:
		default:
			// Sends happen only under the mutex, so draining the single
			// buffered slot before retrying cannot race another sender.
			select {
			case <-ch:
			default:
			}
			ch <- job
		}
	}
}

// Close terminates every subscription. Further publishes are dropped and
// further subscribes return a closed channel.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}
