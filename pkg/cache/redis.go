package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deletes KEYS[1] only if it still holds ARGV[1].
var compareAndDeleteScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Drops KEYS[1] and re-adds ARGV as (score, member) pairs. Readers calling
// ZREVRANGE never observe a half-written set; an empty ARGV leaves the key absent.
var replaceSortedScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
if #ARGV == 0 then return 1 end
for i = 1, #ARGV, 2 do
	redis.call('ZADD', KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (c *RedisCache) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, c.client, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete %s: %w", key, err)
	}
	return n == 1, nil
}

func (c *RedisCache) TopN(ctx context.Context, key string, n int) ([]SortedEntry, error) {
	if n <= 0 {
		return []SortedEntry{}, nil
	}
	zs, err := c.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange %s: %w", key, err)
	}

	entries := make([]SortedEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, SortedEntry{Member: member, Score: z.Score})
	}
	return entries, nil
}

func (c *RedisCache) ReplaceSorted(ctx context.Context, key string, entries []SortedEntry) error {
	args := make([]interface{}, 0, len(entries)*2)
	for _, e := range entries {
		if e.Member == "" {
			continue
		}
		args = append(args, strconv.FormatFloat(e.Score, 'f', -1, 64), e.Member)
	}

	if err := replaceSortedScript.Run(ctx, c.client, []string{key}, args...).Err(); err != nil {
		return fmt.Errorf("redis replace sorted %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) RemoveMember(ctx context.Context, key, member string) error {
	if err := c.client.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zrem %s: %w", key, err)
	}
	return nil
}
