// Package cache provides the Redis-backed compliance summary cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"paygate/internal/contractor/service"
	"paygate/internal/platform/redis"
	"paygate/pkg/domain"
)

// DefaultTTL bounds staleness if an invalidation is ever lost.
const DefaultTTL = 15 * time.Minute

// Redis caches compliance summaries keyed by contractor.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func key(id domain.ContractorID) string {
	return "paygate:summary:" + id.String()
}

func (c *Redis) Get(ctx context.Context, id domain.ContractorID) (*service.ComplianceSummary, error) {
	payload, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var summary service.ComplianceSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &summary, nil
}

func (c *Redis) Set(ctx context.Context, id domain.ContractorID, summary *service.ComplianceSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(id), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, id domain.ContractorID) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
