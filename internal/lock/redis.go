package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

// Owner checks and mutations must be one atomic step, hence Lua.
var (
	unlockScript = redis.NewScript(`
local owner = redis.call("GET", KEYS[1])
if owner == false then
  return "unexist"
end
if owner ~= ARGV[1] then
  return "other"
end
redis.call("DEL", KEYS[1])
return "ok"`)

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisStore is a Redis-backed lock store. A lock is one key holding the
// owner token with a PX lease; Redis expiry handles abandoned locks.
type RedisStore struct {
	name   string
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(name, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("lock %s: redis connection failed: %w", name, err)
	}
	return &RedisStore{name: name, client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client, for tests.
func NewRedisStoreFromClient(name string, client *redis.Client) *RedisStore {
	return &RedisStore{name: name, client: client}
}

func (s *RedisStore) Name() string { return s.name }

func (s *RedisStore) key(resource string) string {
	return "lock:" + s.name + ":" + resource
}

func (s *RedisStore) TryLock(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(resource), owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	// Re-acquire by the current holder resets the lease.
	cur, err := s.client.Get(ctx, s.key(resource)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.client.SetNX(ctx, s.key(resource), owner, ttl).Result()
	}
	if err != nil {
		return false, err
	}
	if cur == owner {
		if err := s.client.Set(ctx, s.key(resource), owner, ttl).Err(); err != nil {
			return false, err
		}
		return true, nil
	}
	metrics.RecordLockContention(s.name)
	return false, nil
}

func (s *RedisStore) Unlock(ctx context.Context, resource, owner string) (enhanced.UnlockStatus, error) {
	res, err := unlockScript.Run(ctx, s.client, []string{s.key(resource)}, owner).Text()
	if err != nil {
		return "", err
	}
	switch res {
	case "ok":
		return enhanced.UnlockSuccess, nil
	case "other":
		return enhanced.UnlockBelongsToOther, nil
	default:
		return enhanced.UnlockNotExist, nil
	}
}

func (s *RedisStore) Renew(ctx context.Context, resource, owner string, ttl time.Duration) error {
	res, err := renewScript.Run(ctx, s.client, []string{s.key(resource)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrNotHeld
	}
	return nil
}

func (s *RedisStore) Status(ctx context.Context, resource string) (*enhanced.LockStatus, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.key(resource))
	ttlCmd := pipe.PTTL(ctx, s.key(resource))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	owner, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return &enhanced.LockStatus{Resource: resource}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &enhanced.LockStatus{Resource: resource, Locked: true, Owner: owner}
	if ttl := ttlCmd.Val(); ttl > 0 {
		status.ExpiresAt = time.Now().Add(ttl)
	}
	return status, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
