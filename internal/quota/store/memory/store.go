// Package memory is the in-process counter table. Records live in a sharded
// map owned by the Store value; nothing is package-global, so each test (or
// server) gets its own table.
package memory

import (
	"context"
	"time"

	"folio/internal/quota/models"
	fsync "folio/pkg/platform/sync"
)

type entry struct {
	count   int
	resetAt time.Time
}

func (e entry) live(now time.Time) bool {
	return e.resetAt.IsZero() || now.Before(e.resetAt)
}

// Store implements ports.CounterStore, ports.Admitter and ports.Sweeper.
type Store struct {
	table *fsync.ShardedMap[entry]
}

func New() *Store {
	return &Store{table: fsync.NewShardedMap[entry]()}
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	e, ok := s.table.Load(key)
	if !ok || !e.live(now) {
		return nil, nil
	}
	return record(key, e), nil
}

func (s *Store) Increment(_ context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	e := s.table.Update(key, func(cur entry, exists bool) (entry, bool) {
		if !exists || !cur.live(now) {
			return entry{count: 1}, true
		}
		cur.count++
		return cur, true
	})
	return record(key, e), nil
}

func (s *Store) SetExpiry(_ context.Context, key string, _, resetAt time.Time) error {
	s.table.Update(key, func(cur entry, exists bool) (entry, bool) {
		if !exists {
			return cur, false
		}
		cur.resetAt = resetAt
		return cur, true
	})
	return nil
}

// Admit compares and increments under the key's shard lock.
func (s *Store) Admit(_ context.Context, key string, limit int, now, resetAt time.Time) (*models.CounterRecord, bool, error) {
	admitted := false
	e := s.table.Update(key, func(cur entry, exists bool) (entry, bool) {
		if !exists || !cur.live(now) {
			cur = entry{resetAt: resetAt}
		}
		if cur.count >= limit {
			return cur, exists
		}
		admitted = true
		cur.count++
		return cur, true
	})
	return record(key, e), admitted, nil
}

// Sweep drops every record whose window ended at or before now.
func (s *Store) Sweep(_ context.Context, now time.Time) (int, error) {
	return s.table.DeleteFunc(func(_ string, e entry) bool {
		return !e.live(now)
	}), nil
}

// Len reports how many records are held, live or not.
func (s *Store) Len() int {
	return s.table.Len()
}

func record(key string, e entry) *models.CounterRecord {
	return &models.CounterRecord{Key: key, Count: e.count, WindowResetAt: e.resetAt}
}
