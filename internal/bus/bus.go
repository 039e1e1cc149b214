package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends gateway events to a Redis Stream for external
// auditing. It is optional: a nil Publisher silently discards events,
// and publish failures are logged, never surfaced to the caller.
type Publisher struct {
	rdb    *redis.Client
	stream string
	logger *slog.Logger
}

// NewPublisher connects to Redis and validates the connection
func NewPublisher(addr, stream string, logger *slog.Logger) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Publisher{rdb: rdb, stream: stream, logger: logger}, nil
}

// Publish appends one event. Fire and forget.
func (p *Publisher) Publish(kind, identity string, fields map[string]interface{}) {
	if p == nil {
		return
	}

	values := map[string]interface{}{
		"kind":     kind,
		"identity": identity,
		"at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		values[k] = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		p.logger.Warn("Failed to publish audit event", "kind", kind, "error", err)
	}
}

// Close releases the Redis connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
