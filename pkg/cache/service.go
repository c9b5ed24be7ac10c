package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Loader produces the authoritative value for a read-through lookup.
type Loader func() (interface{}, error)

// Service is the read-through cache in front of seat maps, event details and
// utilization reports. Writers invalidate; nothing is ever updated in place.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader, dest interface{}) error
}

type service struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewService wraps a connected Redis client.
func NewService(client *redis.Client) Service {
	return &service{client: client, opTimeout: 500 * time.Millisecond}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup(key, false)
		return ErrCacheMiss
	case err != nil:
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// a payload from an older shape is treated as absent
		return fmt.Errorf("%w: undecodable entry %s: %v", ErrCacheMiss, key, err)
	}
	metrics.RecordCacheLookup(key, true)
	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete %v: %w", keys, err)
	}
	return nil
}

// GetOrLoad serves key from Redis, or calls load and fills the key before
// returning. Redis failures degrade to the loader; loader errors are returned
// unwrapped.
func (s *service) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader, dest interface{}) error {
	err := s.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.GetDefault().WarnContext(ctx, "Cache read failed, loading from store",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	value, err := load()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	setCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.client.Set(setCtx, key, payload, ttl).Err(); err != nil {
		logger.GetDefault().WarnContext(ctx, "Cache fill failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return json.Unmarshal(payload, dest)
}
