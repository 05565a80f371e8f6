// Package ratelimit implements per-caller token buckets on top of
// golang.org/x/time/rate. Buckets are created lazily with a full burst and
// reclaimed by Sweep once they are idle and full again.
package ratelimit

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultShards          = 32
	DefaultMaxKeysPerShard = 4096
)

// Config configures a Limiter. Rate is tokens per second.
type Config struct {
	Rate            float64
	Burst           int
	Shards          int
	MaxKeysPerShard int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Limiter is safe for concurrent use. Requests for distinct keys only contend
// on their shard's lock, which is held for a map lookup and one bucket update.
type Limiter struct {
	rate    rate.Limit
	burst   int
	maxKeys int
	shards  []*shard
}

func New(cfg Config) (*Limiter, error) {
	if cfg.Rate <= 0 {
		return nil, errors.New("rate must be positive")
	}
	if cfg.Burst < 1 {
		return nil, errors.New("burst must be at least 1")
	}
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultShards
	}
	if cfg.MaxKeysPerShard <= 0 {
		cfg.MaxKeysPerShard = DefaultMaxKeysPerShard
	}

	l := &Limiter{
		rate:    rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		maxKeys: cfg.MaxKeysPerShard,
		shards:  make([]*shard, cfg.Shards),
	}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	return l, nil
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%uint32(len(l.shards))]
}

// Allow withdraws one token from key's bucket at now. A rejected request
// leaves the bucket untouched.
func (l *Limiter) Allow(key string, now time.Time) bool {
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rate, l.burst)}
		s.buckets[key] = b
	}
	if now.After(b.lastSeen) {
		b.lastSeen = now
	}
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets that are full at now, since they behave exactly like a
// fresh one, then trims any shard above its capacity by least recent use. It
// returns the number of buckets removed.
func (l *Limiter) Sweep(now time.Time) int {
	removed := 0
	full := float64(l.burst)

	for _, s := range l.shards {
		s.mu.Lock()
		for k, b := range s.buckets {
			if b.lim.TokensAt(now) >= full {
				delete(s.buckets, k)
				removed++
			}
		}

		if over := len(s.buckets) - l.maxKeys; over > 0 {
			keys := make([]string, 0, len(s.buckets))
			for k := range s.buckets {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				return s.buckets[keys[i]].lastSeen.Before(s.buckets[keys[j]].lastSeen)
			})
			for _, k := range keys[:over] {
				delete(s.buckets, k)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

// Run sweeps every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			l.Sweep(t)
		}
	}
}
