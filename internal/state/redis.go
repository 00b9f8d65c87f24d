package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData = "data"
	fieldETag = "etag"
	fieldMeta = "meta"
)

// RedisStore is a Redis-backed state store. Entries live in hashes so the
// etag travels with the value; conditional writes run under WATCH so a
// concurrent writer fails the transaction instead of being overwritten.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
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
		return nil, fmt.Errorf("state: redis connection failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client, for tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Item, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrKeyNotFound
	}
	item := &Item{Key: key, Value: []byte(vals[fieldData]), ETag: vals[fieldETag]}
	if meta, ok := vals[fieldMeta]; ok && meta != "" {
		if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
			return nil, fmt.Errorf("state: decoding metadata for %s: %w", key, err)
		}
	}
	return item, nil
}

func (s *RedisStore) Set(ctx context.Context, req *SetRequest) (string, error) {
	etag := newETag()
	fields, err := encodeFields(req.Value, etag, req.Metadata)
	if err != nil {
		return "", err
	}

	if !conditional(req.ETag, req.FirstWrite) {
		if err := s.client.HSet(ctx, req.Key, fields...).Err(); err != nil {
			return "", err
		}
		return etag, nil
	}

	err = s.watchAndRun(ctx, []string{req.Key}, func(tx *redis.Tx) error {
		if err := checkETagTx(ctx, tx, req.Key, req.ETag); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, req.Key, fields...)
			return nil
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return etag, nil
}

func (s *RedisStore) Delete(ctx context.Context, req *DeleteRequest) error {
	if !conditional(req.ETag, req.FirstWrite) {
		return s.client.Del(ctx, req.Key).Err()
	}
	return s.watchAndRun(ctx, []string{req.Key}, func(tx *redis.Tx) error {
		if err := checkETagTx(ctx, tx, req.Key, req.ETag); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, req.Key)
			return nil
		})
		return err
	})
}

func (s *RedisStore) Multi(ctx context.Context, ops []TransactionOp) error {
	var watched []string
	for _, op := range ops {
		if op.Delete && conditional(op.Del.ETag, op.Del.FirstWrite) {
			watched = append(watched, op.Del.Key)
		} else if !op.Delete && conditional(op.Set.ETag, op.Set.FirstWrite) {
			watched = append(watched, op.Set.Key)
		}
	}

	apply := func(p redis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				p.Del(ctx, op.Del.Key)
				continue
			}
			fields, err := encodeFields(op.Set.Value, newETag(), op.Set.Metadata)
			if err != nil {
				return err
			}
			p.HSet(ctx, op.Set.Key, fields...)
		}
		return nil
	}

	if len(watched) == 0 {
		_, err := s.client.TxPipelined(ctx, apply)
		return err
	}

	return s.watchAndRun(ctx, watched, func(tx *redis.Tx) error {
		for _, op := range ops {
			if op.Delete && conditional(op.Del.ETag, op.Del.FirstWrite) {
				if err := checkETagTx(ctx, tx, op.Del.Key, op.Del.ETag); err != nil {
					return err
				}
			} else if !op.Delete && conditional(op.Set.ETag, op.Set.FirstWrite) {
				if err := checkETagTx(ctx, tx, op.Set.Key, op.Set.ETag); err != nil {
					return err
				}
			}
		}
		_, err := tx.TxPipelined(ctx, apply)
		return err
	})
}

func (s *RedisStore) watchAndRun(ctx context.Context, keys []string, fn func(tx *redis.Tx) error) error {
	err := s.client.Watch(ctx, fn, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched a watched key; the conditional write lost.
		return ErrETagMismatch
	}
	return err
}

func checkETagTx(ctx context.Context, tx *redis.Tx, key, etag string) error {
	current, err := tx.HGet(ctx, key, fieldETag).Result()
	if errors.Is(err, redis.Nil) {
		return ErrETagMismatch
	}
	if err != nil {
		return err
	}
	if current != etag {
		return ErrETagMismatch
	}
	return nil
}

func encodeFields(value []byte, etag string, metadata map[string]string) ([]any, error) {
	fields := []any{fieldData, value, fieldETag, etag}
	if len(metadata) > 0 {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldMeta, meta)
	}
	return fields, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
