package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache provides caching and short-lived locks using Redis.
// A nil *RedisCache is valid and behaves as an always-missing cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set stores a value in cache with expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return redis.Nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// GetOrSet retrieves a value from cache, or calls the callback to fetch and cache it
// The callback is only called if the key doesn't exist in cache
func GetOrSet[T any](c *RedisCache, ctx context.Context, key string, expiration time.Duration, fn func() (T, error)) (T, error) {
	var result T

	if err := c.Get(ctx, key, &result); err == nil {
		return result, nil
	}

	result, err := fn()
	if err != nil {
		return result, err
	}

	// cache write failures only cost a later miss
	_ = c.Set(ctx, key, result, expiration)

	return result, nil
}

// Delete removes keys from cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// releaseLockScript deletes the lock only while it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes a named lock for at most ttl and returns the token that
// owns it. It reports false when the lock is already held. Without Redis
// every lock is granted.
func (c *RedisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if c == nil {
		return "", true, nil
	}
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock drops a lock taken with AcquireLock. A lock that expired and
// was taken by someone else is left alone.
func (c *RedisCache) ReleaseLock(ctx context.Context, key, token string) error {
	if c == nil || token == "" {
		return nil
	}
	return releaseLockScript.Run(ctx, c.client, []string{key}, token).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
