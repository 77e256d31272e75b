// Package redis is the remote counter store. Counters are plain Redis
// integers whose TTL is the window; Redis expiry does the purging.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"folio/internal/quota/models"
)

// incrScript increments and reports the remaining TTL in one round trip.
// Returns {count, pttl}; pttl is -1 when no expiry is attached.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local pttl = redis.call('PTTL', KEYS[1])
return {n, pttl}
`)

// admitScript compares against ARGV[1] and increments only below it. A new
// key gets ARGV[2] ms to live. Returns {admitted, count, pttl}.
//
// A saturated key that somehow lost its TTL gets one attached so it cannot
// deny forever; the count itself is never touched on denial.
var admitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local pttl = redis.call('PTTL', KEYS[1])
if current >= limit then
  if pttl == -1 then
    redis.call('PEXPIRE', KEYS[1], ttl)
    pttl = ttl
  end
  return {0, current, pttl}
end
local n = redis.call('INCR', KEYS[1])
if pttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
  pttl = ttl
end
return {1, n, pttl}
`)

// Store implements ports.CounterStore and ports.Admitter on go-redis.
type Store struct {
	client redis.Cmdable
}

func New(client redis.Cmdable) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	var (
		getCmd  *redis.StringCmd
		pttlCmd *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		pttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get counter %s: %w", key, err)
	}

	raw, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get counter %s: %w", key, err)
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("counter %s holds non-integer %q: %w", key, raw, err)
	}

	return &models.CounterRecord{
		Key:           key,
		Count:         count,
		WindowResetAt: resetAtFromTTL(now, pttlCmd.Val()),
	}, nil
}

func (s *Store) Increment(ctx context.Context, key string, now time.Time) (*models.CounterRecord, error) {
	vals, err := incrScript.Run(ctx, s.client, []string{key}).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("increment counter %s: %w", key, err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("increment counter %s: unexpected reply %v", key, vals)
	}
	return &models.CounterRecord{
		Key:           key,
		Count:         int(vals[0]),
		WindowResetAt: resetAtFromTTL(now, time.Duration(vals[1])*time.Millisecond),
	}, nil
}

func (s *Store) SetExpiry(ctx context.Context, key string, now, resetAt time.Time) error {
	if err := s.client.PExpire(ctx, key, ttlUntil(now, resetAt)).Err(); err != nil {
		return fmt.Errorf("set expiry %s: %w", key, err)
	}
	return nil
}

// Admit runs the compare-and-increment script.
func (s *Store) Admit(ctx context.Context, key string, limit int, now, resetAt time.Time) (*models.CounterRecord, bool, error) {
	ttl := ttlUntil(now, resetAt)
	vals, err := admitScript.Run(ctx, s.client, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, false, fmt.Errorf("admit %s: %w", key, err)
	}
	if len(vals) != 3 {
		return nil, false, fmt.Errorf("admit %s: unexpected reply %v", key, vals)
	}
	return &models.CounterRecord{
		Key:           key,
		Count:         int(vals[1]),
		WindowResetAt: resetAtFromTTL(now, time.Duration(vals[2])*time.Millisecond),
	}, vals[0] == 1, nil
}

// Health pings Redis.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ttlUntil never returns less than a millisecond; PEXPIRE 0 deletes the key.
func ttlUntil(now, resetAt time.Time) time.Duration {
	ttl := resetAt.Sub(now)
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl.Truncate(time.Millisecond)
}

// resetAtFromTTL maps a PTTL reply to an absolute time. Negative replies
// (no expiry, no key) map to zero.
func resetAtFromTTL(now time.Time, pttl time.Duration) time.Time {
	if pttl < 0 {
		return time.Time{}
	}
	return now.Add(pttl)
}
