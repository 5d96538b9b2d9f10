// Package changefeed propagates registration changes to in-process
// subscribers and, through a Notifier, to other engine instances.
package changefeed

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

const defaultBuffer = 64

// Handle identifies a subscription.
type Handle uint64

// OverflowRecorder counts events coalesced into a reload.
type OverflowRecorder interface {
	IncHubOverflow()
}

// Hub fans change events out to subscribers. Publishes are serialized; each
// subscriber has its own buffer and delivery goroutine so a slow subscriber
// never blocks the writer. When a buffer overflows, the dropped events are
// replaced by a single reload event for that subscriber.
type Hub struct {
	mu      sync.Mutex
	subs    map[Handle]*subscriber
	next    Handle
	closed  bool
	buffer  int
	logger  *slog.Logger
	metrics OverflowRecorder
	now     func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics records buffer overflows.
func WithMetrics(m OverflowRecorder) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub builds a hub with no subscribers.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[Handle]*subscriber),
		buffer: defaultBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

type subscriber struct {
	fn       func(models.ChangeEvent)
	events   chan models.ChangeEvent
	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	overflow atomic.Bool
}

// Subscribe registers fn. fn runs on the subscription's own goroutine, one
// event at a time, in publish order.
func (h *Hub) Subscribe(fn func(models.ChangeEvent)) Handle {
	sub := &subscriber{
		fn:     fn,
		events: make(chan models.ChangeEvent, h.buffer),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	handle := h.next
	if h.closed {
		close(sub.done)
		return handle
	}
	h.subs[handle] = sub
	go h.deliver(sub)
	return handle
}

// Unsubscribe stops delivery to handle and waits for an in-flight callback
// to return. It must not be called from inside that subscription's callback.
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	sub, ok := h.subs[handle]
	delete(h.subs, handle)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(sub.quit)
	<-sub.done
}

// Publish stamps ev with an id and time when missing and enqueues it for every
// subscriber. It never blocks on a subscriber.
func (h *Hub) Publish(ev models.ChangeEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = h.now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for handle, sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			if !sub.overflow.Swap(true) {
				h.logger.Warn("change feed subscriber overflowed, coalescing into reload",
					"subscriber", handle,
					"event_id", ev.ID,
				)
				if h.metrics != nil {
					h.metrics.IncHubOverflow()
				}
			}
			select {
			case sub.wake <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[Handle]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.quit)
		<-sub.done
	}
}

func (h *Hub) deliver(sub *subscriber) {
	defer close(sub.done)
	for {
		select {
		case <-sub.quit:
			return
		case ev := <-sub.events:
			sub.fn(ev)
		case <-sub.wake:
		}
		if len(sub.events) == 0 && sub.overflow.Swap(false) {
			sub.fn(models.ChangeEvent{
				ID:   uuid.NewString(),
				Kind: models.EventReload,
				At:   h.now().UTC(),
			})
		}
	}
}
