package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"flight-sniper/models"
)

// RedisNotifier appends alerts to a Redis stream, trimmed to roughly maxLen entries.
type RedisNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisNotifier connects to Redis and checks the connection.
func NewRedisNotifier(ctx context.Context, addr string, db int, stream string, maxLen int64) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisNotifier{client: client, stream: stream, maxLen: maxLen}, nil
}

// Notify adds one entry with the route, status and the JSON-encoded alert.
func (n *RedisNotifier) Notify(ctx context.Context, alert models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"route":  alert.Route.String(),
			"status": string(alert.Status),
			"alert":  payload,
		},
	}
	if n.maxLen > 0 {
		args.MaxLen = n.maxLen
		args.Approx = true
	}

	if err := n.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", n.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
