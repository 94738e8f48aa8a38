package lock

import (
	"context"
	"sort"
	"time"

	dErrors "scholarops/pkg/domain-errors"
)

// numShards trades memory for contention. Unrelated interviewer days rarely
// share a shard at this size.
const numShards = 128

// Sharded is an in-process Locker. Keys hash onto a fixed set of
// channel semaphores so waiting honours context cancellation.
type Sharded struct {
	shards  [numShards]chan struct{}
	timeout time.Duration
}

type ShardedOption func(*Sharded)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ShardedOption {
	return func(s *Sharded) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSharded(opts ...ShardedOption) *Sharded {
	s := &Sharded{timeout: DefaultTimeout}
	for i := range s.shards {
		s.shards[i] = make(chan struct{}, 1)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sharded) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	indices := s.shardsFor(keys)
	held := make([]int, 0, len(indices))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-s.shards[held[i]]
		}
	}
	for _, idx := range indices {
		select {
		case s.shards[idx] <- struct{}{}:
			held = append(held, idx)
		case <-ctx.Done():
			release()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for interviewer calendar lock")
		}
	}

	// Check again after acquiring
	if err := ctx.Err(); err != nil {
		release()
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	return release, nil
}

// shardsFor maps keys to distinct shard indices in ascending order. Two keys
// landing on one shard take it once.
func (s *Sharded) shardsFor(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	var out []int
	for _, k := range normalize(keys) {
		idx := int(hashKey(k) % numShards)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
