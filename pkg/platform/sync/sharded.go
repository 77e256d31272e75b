package sync

import (
	"sync"
)

const shardCount = 32

// ShardedMap is a string-keyed map split across 32 independently locked
// shards. Operations on keys in different shards never contend.
type ShardedMap[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

func NewShardedMap[V any]() *ShardedMap[V] {
	sm := &ShardedMap[V]{}
	for i := range sm.shards {
		sm.shards[i].m = make(map[string]V)
	}
	return sm
}

// Load returns the value stored under key.
func (sm *ShardedMap[V]) Load(key string) (V, bool) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

// Update runs fn under the key's shard lock. fn receives the current value
// (and whether it exists) and returns the value to store and whether to keep
// it; keep == false deletes the key. Update returns what fn stored.
func (sm *ShardedMap[V]) Update(key string, fn func(cur V, exists bool) (next V, keep bool)) V {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.m[key]
	next, keep := fn(cur, ok)
	if keep {
		s.m[key] = next
	} else {
		delete(s.m, key)
	}
	return next
}

func (sm *ShardedMap[V]) Delete(key string) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// DeleteFunc removes every entry for which pred returns true and reports how
// many were removed. Shards are locked one at a time.
func (sm *ShardedMap[V]) DeleteFunc(pred func(key string, v V) bool) int {
	removed := 0
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.Lock()
		for k, v := range s.m {
			if pred(k, v) {
				delete(s.m, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len is a point-in-time sum over shards.
func (sm *ShardedMap[V]) Len() int {
	n := 0
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}

func (sm *ShardedMap[V]) shardFor(key string) *shard[V] {
	return &sm.shards[hashString(key)%shardCount]
}

// hashString is a djb2-style hash; good enough spread for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
