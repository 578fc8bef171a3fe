package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"billsmith/backend/internal/domain"
)

type RedisRunStatusCache struct {
	client *redis.Client
}

func NewRedisRunStatusCache(addr string, password string, db int) *RedisRunStatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRunStatusCache{client: client}
}

func (c *RedisRunStatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRunStatusCache) Close() error {
	return c.client.Close()
}

func (c *RedisRunStatusCache) Get(ctx context.Context, runID string) (*domain.RunStatus, bool, error) {
	val, err := c.client.Get(ctx, statusKey(runID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var status domain.RunStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, false, err
	}
	return &status, true, nil
}

func (c *RedisRunStatusCache) Set(ctx context.Context, runID string, status *domain.RunStatus, ttl time.Duration) error {
	if status == nil {
		return nil
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKey(runID), payload, ttl).Err()
}

func statusKey(runID string) string {
	return "billsmith:run-status:" + runID
}
