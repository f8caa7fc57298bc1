package relay

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "crash_events"

// RedisPublisher publishes to a Redis pub/sub channel.
type RedisPublisher struct {
	r       *redis.Client
	channel string
}

func NewRedisPublisher(r *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{r: r, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, _ string, payload []byte) error {
	return p.r.Publish(ctx, p.channel, payload).Err()
}

func (p *RedisPublisher) Close() error { return p.r.Close() }
