package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/domain"
)

const recordChannel = "codedrop:records"

type rawBroadcaster interface {
	BroadcastRaw(data []byte) int
}

// Relay fans records out to every instance through Redis pub/sub.
// Every instance runs Start and broadcasts what it receives to its own subscribers, while only
// the ingestion leader publishes.
type Relay struct {
	rdb     *goredis.Client
	local   rawBroadcaster
	metrics *metrics.RedisMetrics
}

var _ domain.RecordPublisher = (*Relay)(nil)

// NewRelay creates a relay that delivers received records to local. m may be nil.
func NewRelay(rdb *goredis.Client, local rawBroadcaster, m *metrics.RedisMetrics) *Relay {
	return &Relay{rdb: rdb, local: local, metrics: m}
}

// Publish sends record to the relay channel. When Redis is unreachable the record is broadcast
// locally instead so this instance's subscribers still receive it.
func (r *Relay) Publish(ctx context.Context, record *domain.NormalizedRecord) error {
	data, err := record.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := r.rdb.Publish(ctx, recordChannel, data).Err(); err != nil {
		slog.WarnContext(ctx, "Relay publish failed, broadcasting locally", "channel", record.Channel, "error", err)
		r.count("local")
		r.local.BroadcastRaw(data)
		return nil
	}

	r.count("redis")
	return nil
}

// Start subscribes to the relay channel and waits for Redis to confirm the subscription, so
// records published after Start returns are delivered. Messages are consumed in the background
// until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, recordChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", recordChannel, err)
	}

	go r.consume(ctx, pubsub)
	return nil
}

func (r *Relay) consume(ctx context.Context, pubsub *goredis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleMessage(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) handleMessage(payload string) {
	if payload == "" {
		slog.Warn("Empty relay message")
		return
	}

	if r.metrics != nil {
		r.metrics.RelayReceived.Inc()
	}
	delivered := r.local.BroadcastRaw([]byte(payload))
	slog.Debug("Relayed record broadcast", "delivered", delivered)
}

func (r *Relay) count(path string) {
	if r.metrics != nil {
		r.metrics.RelayPublished.WithLabelValues(path).Inc()
	}
}
