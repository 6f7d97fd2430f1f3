// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/redis/go-redis/v9"
)

// Publisher pushes action records onto the redis list the historian drains.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewClient connects to redis and checks the connection with a ping.
func NewClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewPublisher wraps an existing client.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish serializes the record and RPushes it. The caller only waits for one
// round trip.
func (p *Publisher) Publish(ctx context.Context, rec models.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Queue is the list name records are pushed to.
func (p *Publisher) Queue() string { return p.queue }

// Close closes the underlying client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
