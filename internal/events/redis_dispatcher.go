package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisDispatcher publishes events to Redis channels keyed by ticket and
// company id. Fan-out to viewers is handled outside this service; our
// obligation ends once the row is committed and the message published.
type redisDispatcher struct {
	client *redis.Client
	inner  Dispatcher
	logger *zap.Logger
}

// NewRedisDispatcher wraps the in-memory dispatcher with Redis publication.
// Local subscribers (e.g. logging hooks) still fire; remote viewers receive
// the JSON payload over pub/sub.
func NewRedisDispatcher(client *redis.Client, logger *zap.Logger) Dispatcher {
	return &redisDispatcher{
		client: client,
		inner:  NewInMemoryDispatcher(),
		logger: logger,
	}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	_ = d.inner.Publish(ctx, event)

	if d.client == nil {
		return nil
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channels := []string{"ticket:" + event.TicketID}
	if event.CompanyID != "" {
		channels = append(channels, "company:"+event.CompanyID)
	}
	for _, channel := range channels {
		if err := d.client.Publish(ctx, channel, raw).Err(); err != nil {
			d.logger.Warn("publish change notification",
				zap.String("channel", channel),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
