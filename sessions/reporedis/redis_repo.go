// Package reporedis persists the session snapshot under a single Redis key.
package reporedis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ sessions.Repo = (*RedisRepo)(nil)

type RedisRepo struct {
	client *redis.Client
	key    string
}

// New wraps an existing client
func New(client *redis.Client, key string) *RedisRepo {
	return &RedisRepo{client: client, key: key}
}

// NewWithURL creates a client from a redis:// URL
func NewWithURL(url, key string) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("reporedis.NewWithURL: %w", err)
	}
	return New(redis.NewClient(opts), key), nil
}

// Close closes the Redis connection.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) Save(ctx context.Context, session sessions.Session) error {
	data, err := sessions.MarshalSnapshot(session)
	if err != nil {
		return fmt.Errorf("RedisRepo.Save marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("RedisRepo.Save: %w", err)
	}
	return nil
}

func (r *RedisRepo) Load(ctx context.Context) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RedisRepo.Load: %w", err)
	}

	s, err := sessions.UnmarshalSnapshot(data)
	if err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("discarding corrupt session record")
		if delErr := r.client.Del(ctx, r.key).Err(); delErr != nil {
			return nil, fmt.Errorf("RedisRepo.Load delete corrupt: %w", delErr)
		}
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepo) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("RedisRepo.Clear: %w", err)
	}
	return nil
}
