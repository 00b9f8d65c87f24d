package client

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

// redisClient is the native Redis namespace: a typed passthrough to the
// server the client was configured with. No sidecar round trip.
type redisClient struct {
	rdb *redis.Client
}

var _ native.Redis = (*redisClient)(nil)

func newRedisClient(addr, password string, db int) (*redisClient, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeNetwork, err, "redis unreachable")
	}
	return &redisClient{rdb: rdb}, nil
}

// newRedisClientFromClient wraps an existing connection, for tests.
func newRedisClientFromClient(rdb *redis.Client) *redisClient {
	return &redisClient{rdb: rdb}
}

// wrapRedis keeps redis.Nil visible through errors.Is while attaching the
// not-found classification.
func wrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if err == redis.Nil {
		return cloudruntimes.Wrap(cloudruntimes.CodeNotFound, err, "key not found")
	}
	return cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "redis command failed")
}

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	return v, wrapRedis(err)
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return wrapRedis(c.rdb.Set(ctx, key, value, ttl).Err())
}

func (c *redisClient) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Exists(ctx, keys...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	return ok, wrapRedis(err)
}

func (c *redisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	return d, wrapRedis(err)
}

func (c *redisClient) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := c.rdb.IncrBy(ctx, key, delta).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) Decr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Decr(ctx, key).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := c.rdb.HGet(ctx, key, field).Result()
	return v, wrapRedis(err)
}

func (c *redisClient) HSet(ctx context.Context, key string, fieldValues ...string) (int64, error) {
	args := make([]any, len(fieldValues))
	for i, fv := range fieldValues {
		args[i] = fv
	}
	n, err := c.rdb.HSet(ctx, key, args...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := c.rdb.HGetAll(ctx, key).Result()
	return m, wrapRedis(err)
}

func (c *redisClient) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := c.rdb.HDel(ctx, key, fields...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := c.rdb.LPush(ctx, key, stringsToAny(values)...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := c.rdb.RPush(ctx, key, stringsToAny(values)...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) LPop(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.LPop(ctx, key).Result()
	return v, wrapRedis(err)
}

func (c *redisClient) RPop(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.RPop(ctx, key).Result()
	return v, wrapRedis(err)
}

func (c *redisClient) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := c.rdb.SAdd(ctx, key, stringsToAny(members)...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := c.rdb.SRem(ctx, key, stringsToAny(members)...).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	return members, wrapRedis(err)
}

func (c *redisClient) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, key, member).Result()
	return ok, wrapRedis(err)
}

func (c *redisClient) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	n, err := c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Result()
	return n, wrapRedis(err)
}

func (c *redisClient) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := c.rdb.ZRange(ctx, key, start, stop).Result()
	return members, wrapRedis(err)
}

func (c *redisClient) Do(ctx context.Context, args ...any) (any, error) {
	v, err := c.rdb.Do(ctx, args...).Result()
	return v, wrapRedis(err)
}

func (c *redisClient) Close() error { return c.rdb.Close() }

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
