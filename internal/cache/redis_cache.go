package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// RedisConversationCache implements ConversationCache on redis.
type RedisConversationCache struct {
	client *redis.Client
	prefix string
}

// NewRedisConversationCache connects to redis and verifies the connection.
func NewRedisConversationCache(addr, password string, db int, prefix string) (*RedisConversationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisConversationCache{
		client: client,
		prefix: prefix,
	}, nil
}

// PairKey returns the order-independent key prefix for a conversation pair.
func (c *RedisConversationCache) PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s:%s", c.prefix, a, b)
}

// BuildKey returns the cache key for one conversation page.
func (c *RedisConversationCache) BuildKey(a, b string, limit int) string {
	return fmt.Sprintf("%s:%d", c.PairKey(a, b), limit)
}

func (c *RedisConversationCache) Get(ctx context.Context, key string) (*ConversationCacheResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result ConversationCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisConversationCache) Set(ctx context.Context, key string, result *ConversationCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

// Delete removes every cached page under the pair key.
func (c *RedisConversationCache) Delete(ctx context.Context, pairKey string) error {
	iter := c.client.Scan(ctx, 0, pairKey+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

func (c *RedisConversationCache) Close() error {
	return c.client.Close()
}
