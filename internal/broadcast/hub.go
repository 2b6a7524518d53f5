package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/domain"
)

// Subscriber is a live push connection.
type Subscriber interface {
	ID() string
	Ready() bool
	Send(data []byte) error
}

type gracefulCloser interface {
	CloseGraceful(reason string)
}

// Hub holds the live subscriber set.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	metrics     *metrics.WebSocketMetrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.WebSocketMetrics) *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		metrics:     m,
	}
}

// Register adds sub to the live set. Registering the same subscriber twice keeps one entry.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	_, exists := h.subscribers[sub.ID()]
	h.subscribers[sub.ID()] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	if !exists {
		h.setActive(count)
		slog.Debug("Subscriber registered", "subscriber_id", sub.ID(), "subscribers", count)
	}
}

// Unregister removes sub from the live set. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	current, ok := h.subscribers[sub.ID()]
	if ok && current == sub {
		delete(h.subscribers, sub.ID())
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if ok && current == sub {
		h.setActive(count)
		slog.Debug("Subscriber unregistered", "subscriber_id", sub.ID(), "subscribers", count)
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish implements domain.RecordPublisher by broadcasting to local subscribers.
func (h *Hub) Publish(ctx context.Context, record *domain.NormalizedRecord) error {
	_, err := h.Broadcast(ctx, record)
	return err
}

// Broadcast serializes record once and sends it to every live subscriber.
// Returns the number of subscribers the record was handed to.
func (h *Hub) Broadcast(ctx context.Context, record *domain.NormalizedRecord) (int, error) {
	data, err := record.Encode()
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	delivered := h.BroadcastRaw(data)
	slog.DebugContext(ctx, "Record broadcast", "channel", record.Channel, "delivered", delivered)
	return delivered, nil
}

// BroadcastRaw sends data to every subscriber in a snapshot of the live set.
// Subscribers that are closed are removed; subscribers with a full buffer are skipped.
func (h *Hub) BroadcastRaw(data []byte) int {
	delivered := 0
	for _, sub := range h.snapshot() {
		if !sub.Ready() {
			h.skipped("not_ready")
			h.Unregister(sub)
			continue
		}

		err := sub.Send(data)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, domain.ErrSubscriberBufferFull):
			h.skipped("buffer_full")
		default:
			h.skipped("not_ready")
			h.Unregister(sub)
		}
	}

	if h.metrics != nil {
		h.metrics.MessagesDelivered.Add(float64(delivered))
	}
	return delivered
}

// CloseAll sends a close frame with reason to every subscriber that supports it and empties the live set.
func (h *Hub) CloseAll(reason string) {
	subs := h.snapshot()

	h.mu.Lock()
	h.subscribers = make(map[string]Subscriber)
	h.mu.Unlock()
	h.setActive(0)

	var wg sync.WaitGroup
	for _, sub := range subs {
		closer, ok := sub.(gracefulCloser)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			closer.CloseGraceful(reason)
		}()
	}
	wg.Wait()

	slog.Info("Closed all subscribers", "count", len(subs), "reason", reason)
}

func (h *Hub) snapshot() []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) setActive(count int) {
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(count))
	}
}

func (h *Hub) skipped(reason string) {
	if h.metrics != nil {
		h.metrics.MessagesSkipped.WithLabelValues(reason).Inc()
	}
}
