package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// NullCache backs --no-cache runs. It stores nothing but counts the traffic
// it turned away, so a run can report how much work went uncached.
type NullCache struct {
	lookups atomic.Int64
	dropped atomic.Int64
}

// NullStats is the traffic a NullCache saw.
type NullStats struct {
	Lookups      int64 // Get calls, all misses
	DroppedBytes int64 // bytes passed to Set and discarded
}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Get counts the lookup and reports a miss.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.lookups.Add(1)
	return nil, false, nil
}

// Set discards data.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.dropped.Add(int64(len(data)))
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

func (c *NullCache) Close() error { return nil }

// Stats returns the counts so far.
func (c *NullCache) Stats() NullStats {
	return NullStats{Lookups: c.lookups.Load(), DroppedBytes: c.dropped.Load()}
}

var _ Cache = (*NullCache)(nil)
