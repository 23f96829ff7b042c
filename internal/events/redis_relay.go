package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

// DefaultChannel is the Redis pub/sub channel carrying request events.
const DefaultChannel = "trade-registry:requests"

// RedisRelay publishes events through Redis so that every service instance
// delivers them to its own subscribers. Local delivery happens only via the
// subscription, which keeps one copy per instance.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  logrus.FieldLogger
}

func NewRedisRelay(client *redis.Client, hub *Hub, channel string, logger logrus.FieldLogger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisRelay{client: client, hub: hub, channel: channel, logger: logger}
}

// PublishRequestEvent implements workflow.EventPublisher. When Redis is
// unreachable the event is still delivered to this instance.
func (r *RedisRelay) PublishRequestEvent(ctx context.Context, kind workflow.EventKind, req *models.Request) {
	evt := NewEvent(kind, req)
	payload, err := json.Marshal(evt)
	if err != nil {
		r.logger.WithError(err).Error("Failed to encode request event")
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.WithError(err).WithField("request_id", req.ID).Warn("Redis publish failed, delivering locally")
		r.hub.Broadcast(evt)
		return
	}
	if r.hub.counter != nil {
		r.hub.counter.IncEventsPublished(string(kind), "redis")
	}
}

// Run relays messages from Redis into the hub until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				r.logger.WithError(err).Warn("Dropping malformed request event")
				continue
			}
			r.hub.Broadcast(evt)
		}
	}
}

var _ workflow.EventPublisher = (*RedisRelay)(nil)
