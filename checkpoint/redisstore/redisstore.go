// Package redisstore is a Redis-backed checkpoint.Store [NEW, enrichment].
// The teacher ships no Redis store (its durable option is MySQL); this is
// grounded instead on the fanjia1024-Aetheris pack repo's use of
// github.com/redis/go-redis/v9 (internal/einoext/factory.go,
// internal/einoext/config.go: redis.NewClient(opts), context-scoped
// command calls), adapted here to the checkpoint.Store contract to give
// the checkpoint subsystem a second, network-backed implementation per
// spec.md §4.6's "Store decides persistence."
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spicegraph/spicegraph/checkpoint"
)

const keyPrefix = "spicegraph:checkpoint:"

func checkpointKey(id string) string { return keyPrefix + id }
func runIndexKey(runID string) string { return "spicegraph:run:" + runID }

// Store is a checkpoint.Store backed by a Redis client. Each checkpoint is
// stored as a JSON blob at checkpointKey(id); runIndexKey(runID) is a
// Redis set of checkpoint IDs belonging to that run, used to implement
// ListByRun/DeleteByRun without a secondary index service.
type Store struct {
	client *redis.Client
}

// New wraps an existing, already-configured *redis.Client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open is a convenience constructor that builds a client from opts and
// verifies connectivity with a Ping.
func Open(ctx context.Context, opts *redis.Options) (*Store, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return New(client), nil
}

// Save persists cp and indexes it under its run.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("redisstore: marshal checkpoint: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, checkpointKey(cp.ID), payload, 0)
	pipe.SAdd(ctx, runIndexKey(cp.RunID), cp.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: save: %w", err)
	}
	return nil
}

// Get retrieves a checkpoint by ID.
func (s *Store) Get(ctx context.Context, id string) (checkpoint.Checkpoint, error) {
	payload, err := s.client.Get(ctx, checkpointKey(id)).Bytes()
	if err == redis.Nil {
		return checkpoint.Checkpoint{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("redisstore: get: %w", err)
	}

	var cp checkpoint.Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("redisstore: unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// ListByRun returns every checkpoint indexed under runID.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]checkpoint.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, runIndexKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = checkpointKey(id)
	}
	payloads, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: mget: %w", err)
	}

	out := make([]checkpoint.Checkpoint, 0, len(payloads))
	for _, p := range payloads {
		str, ok := p.(string)
		if !ok {
			continue // id was indexed but its checkpoint key expired/was deleted directly
		}
		var cp checkpoint.Checkpoint
		if err := json.Unmarshal([]byte(str), &cp); err != nil {
			return nil, fmt.Errorf("redisstore: unmarshal checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteByRun removes every checkpoint indexed under runID, along with the
// index itself.
func (s *Store) DeleteByRun(ctx context.Context, runID string) error {
	ids, err := s.client.SMembers(ctx, runIndexKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("redisstore: delete: list members: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, checkpointKey(id))
	}
	pipe.Del(ctx, runIndexKey(runID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: delete: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
