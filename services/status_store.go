package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/go-redis/redis/v8"
)

const (
	jobKeyPrefix  = "catalog_import:job:"
	queueKey      = "catalog_import:queue"
	defaultJobTTL = 24 * time.Hour
)

// StatusStore persists job status records so they outlive the in-memory registry.
type StatusStore interface {
	Save(ctx context.Context, rec models.JobStatusRecord) error
	Load(ctx context.Context, id string) (models.JobStatusRecord, error)
}

// RedisStatusStore keeps status records as JSON under catalog_import:job:<id>.
type RedisStatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusStore(rdb *redis.Client, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &RedisStatusStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStatusStore) Save(ctx context.Context, rec models.JobStatusRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(rec.State.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job status: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) Load(ctx context.Context, id string) (models.JobStatusRecord, error) {
	val, err := s.rdb.Get(ctx, jobKey(id)).Result()
	if err == redis.Nil {
		return models.JobStatusRecord{}, ErrJobNotFound
	}
	if err != nil {
		return models.JobStatusRecord{}, fmt.Errorf("failed to read job status: %w", err)
	}
	var rec models.JobStatusRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.JobStatusRecord{}, fmt.Errorf("failed to parse job status: %w", err)
	}
	return rec, nil
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
