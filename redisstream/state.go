package redisstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/velmie/stockrelay"
)

// StateStore keeps item states as plain Redis string keys.
type StateStore struct {
	pool Pool
}

var _ stockrelay.StateStore = (*StateStore)(nil)

// NewStateStore constructs a Redis-backed state store.
func NewStateStore(pool Pool) (*StateStore, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	return &StateStore{pool: pool}, nil
}

// Get returns the stored value and whether the key exists.
func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	value, err := redis.String(do(ctx, conn, "GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("stockrelay redis: get %s failed: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key. A non-positive ttl stores the key without expiry.
func (s *StateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	args := redis.Args{key, value}
	if ttl > 0 {
		seconds := int64(ttl / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		args = args.Add("EX", seconds)
	}
	if _, err := do(ctx, conn, "SET", args...); err != nil {
		return fmt.Errorf("stockrelay redis: set %s failed: %w", key, err)
	}

	return nil
}

// NewPool builds a connection pool for a redis:// URL.
func NewPool(rawURL string, maxIdle int) *redis.Pool {
	if maxIdle <= 0 {
		maxIdle = 8
	}

	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(rawURL)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")

			return err
		},
	}
}
