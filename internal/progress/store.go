package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/engine"
)

// Store is the progress-store port: snapshot writes are fire-and-forget,
// reads are best-effort.
type Store interface {
	Save(ctx context.Context, snap engine.Snapshot) error
	Load(ctx context.Context, candidateEmail string) (*engine.Snapshot, error)
	MarkComplete(ctx context.Context, candidateEmail string) error
}

// RedisStore keeps the hot snapshot in Redis and hands every write to the
// persistence queue for write-behind into Postgres, so a restore still
// works after cache eviction.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates the Redis-backed progress store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Save stores the snapshot under the candidate key and queues it for
// asynchronous persistence. Snapshots without a candidate identity are
// dropped: they would all collide on one key and the worker cannot
// persist them.
func (s *RedisStore) Save(ctx context.Context, snap engine.Snapshot) error {
	if snap.CandidateEmail == "" {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := config.CacheKey.CandidateProgressKey(snap.CandidateEmail)
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	// Write-behind: the snapshot worker drains this into Postgres.
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, data).Err(); err != nil {
		return fmt.Errorf("queue snapshot: %w", err)
	}
	return nil
}

// Load returns the candidate's snapshot, nil when none exists or the
// stored one is already completed.
func (s *RedisStore) Load(ctx context.Context, candidateEmail string) (*engine.Snapshot, error) {
	key := config.CacheKey.CandidateProgressKey(candidateEmail)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.IsCompleted {
		return nil, nil
	}
	return &snap, nil
}

// MarkComplete flags the stored snapshot completed so the next session
// entry starts fresh.
func (s *RedisStore) MarkComplete(ctx context.Context, candidateEmail string) error {
	snap, err := s.Load(ctx, candidateEmail)
	if err != nil || snap == nil {
		return err
	}
	snap.IsCompleted = true
	return s.Save(ctx, *snap)
}
