package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection and naming parameters for RedisPublisher.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Channel      string // pub/sub, for live consumers
	Stream       string // capped stream, for consumers that catch up
	StreamMaxLen int64
}

// RedisPublisher mirrors each event to a pub/sub channel and appends it to a
// stream trimmed with XADD MAXLEN ~.
type RedisPublisher struct {
	rdb *redis.Client
	cfg RedisConfig
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisPublisherFromClient(rdb, cfg), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(rdb *redis.Client, cfg RedisConfig) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, cfg: cfg}
}

// Publish implements Sink.
func (p *RedisPublisher) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", evt.Type, err)
	}

	if p.cfg.Channel != "" {
		if err := p.rdb.Publish(ctx, p.cfg.Channel, payload).Err(); err != nil {
			return fmt.Errorf("redis: publish %s: %w", p.cfg.Channel, err)
		}
	}
	if p.cfg.Stream != "" {
		args := &redis.XAddArgs{
			Stream: p.cfg.Stream,
			MaxLen: p.cfg.StreamMaxLen,
			Approx: true,
			Values: map[string]any{
				"type": string(evt.Type),
				"data": payload,
			},
		}
		if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("redis: xadd %s: %w", p.cfg.Stream, err)
		}
	}
	return nil
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
