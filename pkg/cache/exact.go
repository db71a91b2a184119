package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-orchestrator-be/internal/entity"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ExactStore is the fingerprint-keyed answer cache. Writes are a single
// atomic put per key, last-write-wins.
type ExactStore interface {
	Get(ctx context.Context, fingerprint string) (*entity.CachedAnswer, bool, error)
	Set(ctx context.Context, fingerprint string, answer *entity.CachedAnswer, ttl time.Duration) error
}

const exactKeyPrefix = "pipeline:answer:"

// RedisExactStore backs the exact cache with Redis so all instances share it.
type RedisExactStore struct {
	client *redis.Client
}

func NewRedisExactStore(client *redis.Client) *RedisExactStore {
	return &RedisExactStore{client: client}
}

var _ ExactStore = &RedisExactStore{}

func (s *RedisExactStore) Get(ctx context.Context, fingerprint string) (*entity.CachedAnswer, bool, error) {
	data, err := s.client.Get(ctx, exactKeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var answer entity.CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached answer: %w", err)
	}
	return &answer, true, nil
}

func (s *RedisExactStore) Set(ctx context.Context, fingerprint string, answer *entity.CachedAnswer, ttl time.Duration) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal cached answer: %w", err)
	}
	return s.client.Set(ctx, exactKeyPrefix+fingerprint, data, ttl).Err()
}

// MemoryExactStore is the single-instance fallback used when Redis is not
// reachable at bootstrap. Same contract, process-local.
type MemoryExactStore struct {
	cache *gocache.Cache
}

func NewMemoryExactStore(defaultTTL time.Duration) *MemoryExactStore {
	return &MemoryExactStore{
		cache: gocache.New(defaultTTL, 10*time.Minute),
	}
}

var _ ExactStore = &MemoryExactStore{}

func (s *MemoryExactStore) Get(ctx context.Context, fingerprint string) (*entity.CachedAnswer, bool, error) {
	if x, found := s.cache.Get(fingerprint); found {
		return x.(*entity.CachedAnswer), true, nil
	}
	return nil, false, nil
}

func (s *MemoryExactStore) Set(ctx context.Context, fingerprint string, answer *entity.CachedAnswer, ttl time.Duration) error {
	s.cache.Set(fingerprint, answer, ttl)
	return nil
}
