// Package redis adapts a Redis server to kv.Store. Writers coordinate
// through a redislock lock so the HTTP server, the worker and trackctl can
// share one document.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	lockTTL   = 10 * time.Second
	lockRetry = 50 * time.Millisecond
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	client *goredis.Client
	locker *redislock.Client
}

// New connects and pings the server.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client, locker: redislock.New(client)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Lock implements kv.Locker.
func (s *Store) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := s.locker.Obtain(ctx, "lock:"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(lockRetry),
	})
	if err != nil {
		return nil, fmt.Errorf("obtain lock for %s: %w", key, err)
	}
	return func() {
		// Release with a fresh context: the caller's may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, nil
}

// Ping implements kv.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
