package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chanfilter/internal/catalog/models"
)

const defaultRedisPrefix = "chanfilter:cache:"

// RedisSink persists entries as JSON strings in Redis. Keys also carry a
// native expiry slightly past the cache TTL so abandoned entries disappear
// without a sweep.
type RedisSink struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type RedisOption func(s *RedisSink)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisSink) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisSink) {
		s.ttl = ttl
	}
}

func NewRedisSink(client redis.UniversalClient, opts ...RedisOption) *RedisSink {
	s := &RedisSink{client: client, prefix: defaultRedisPrefix, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSink) Load(ctx context.Context) ([]Entry, error) {
	var out []Entry
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("load cache entries: %w", err)
		}
		for _, v := range values {
			str, ok := v.(string)
			if !ok {
				continue
			}
			e, err := decodeEntry([]byte(str))
			if err != nil {
				continue
			}
			out = append(out, e)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan cache keys: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisSink) Save(ctx context.Context, entry Entry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	var expiry time.Duration
	if s.ttl > 0 {
		expiry = s.ttl + time.Hour
	}
	if err := s.client.Set(ctx, s.key(entry.Key), payload, expiry).Err(); err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

func (s *RedisSink) Delete(ctx context.Context, keys []models.IdentityKey) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = s.key(k)
	}
	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the client.
func (s *RedisSink) Close() error {
	return nil
}

func (s *RedisSink) key(k models.IdentityKey) string {
	return s.prefix + k.String()
}
