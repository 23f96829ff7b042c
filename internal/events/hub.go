// Package events fans committed request changes out to real-time clients.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/dto"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

// Event is one push message. Clients merge by Request.ID, last write wins.
type Event struct {
	ID         uuid.UUID          `json:"id"`
	Kind       workflow.EventKind `json:"kind"`
	Request    dto.RequestDTO     `json:"request"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// NewEvent builds the push message for a committed request change.
func NewEvent(kind workflow.EventKind, req *models.Request) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		Request:    dto.FromRequest(req, false),
		OccurredAt: time.Now().UTC(),
	}
}

// Counter is satisfied by the metrics package.
type Counter interface {
	IncEventsPublished(kind, transport string)
}

// Hub fan-outs events to all active subscribers of this process.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	buffer  int
	counter Counter
}

func NewHub(buffer int, counter Counter) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:    make(map[int]chan Event),
		buffer:  buffer,
		counter: counter,
	}
}

// Subscribe registers a subscriber. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Subscribers reports the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers evt to every subscriber without blocking.
func (h *Hub) Broadcast(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber; it will resync on its next fetch.
		}
	}
}

// PublishRequestEvent implements workflow.EventPublisher for single-instance runs.
func (h *Hub) PublishRequestEvent(_ context.Context, kind workflow.EventKind, req *models.Request) {
	h.Broadcast(NewEvent(kind, req))
	if h.counter != nil {
		h.counter.IncEventsPublished(string(kind), "local")
	}
}

var _ workflow.EventPublisher = (*Hub)(nil)
