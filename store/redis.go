package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/krishnaadithya/movie-gen/models"
)

// RedisSessions persists sessions as JSON blobs with a TTL refreshed on every
// write, so eviction falls out of Redis key expiry. Per-id mutation is
// serialized with local mutexes; the service runs as a single instance.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration

	locks sync.Map // session id -> *sync.Mutex
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }
func statusKey(id string) string  { return "status:" + id }

func (r *RedisSessions) lock(id string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (r *RedisSessions) Create(ctx context.Context, s *models.Session) error {
	return r.Save(ctx, s)
}

func (r *RedisSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	// sliding TTL: reads keep active sessions alive
	r.rdb.Expire(ctx, sessionKey(id), r.ttl)
	return &s, nil
}

func (r *RedisSessions) Save(ctx context.Context, s *models.Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisSessions) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()

	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// RedisStatuses is the Redis-backed status register.
type RedisStatuses struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatuses(rdb *redis.Client, ttl time.Duration) *RedisStatuses {
	return &RedisStatuses{rdb: rdb, ttl: ttl}
}

func (r *RedisStatuses) Set(ctx context.Context, id string, st models.GenerationStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", id, err)
	}
	if err := r.rdb.Set(ctx, statusKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save status %s: %w", id, err)
	}
	return nil
}

func (r *RedisStatuses) Get(ctx context.Context, id string) (models.GenerationStatus, error) {
	data, err := r.rdb.Get(ctx, statusKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NotStarted(), nil
	}
	if err != nil {
		return models.GenerationStatus{}, fmt.Errorf("redis get status %s: %w", id, err)
	}

	var st models.GenerationStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return models.GenerationStatus{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	return st, nil
}
