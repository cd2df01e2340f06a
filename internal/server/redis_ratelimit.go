package server

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTokenStore backs the login throttle with a shared Redis counter so
// replicas enforce a single per-IP limit.
type redisTokenStore struct {
	client  *redis.Client
	timeout time.Duration
}

func newRedisTokenStore(addr, password string, timeout time.Duration) *redisTokenStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &redisTokenStore{client: client, timeout: timeout}
}

func (s *redisTokenStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if window < time.Second {
			window = time.Second
		}
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		return false, window, nil
	}
	return false, ttl, nil
}
