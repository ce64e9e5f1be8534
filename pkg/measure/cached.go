package measure

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/observability"
)

// Cached memoizes a Provider per descriptor and width.
type Cached struct {
	inner Provider
	cache cache.Cache
	keyer cache.Keyer
	opts  cache.MeasureKeyOpts
}

// NewCached wraps p. Source and fingerprint become part of every key, so
// estimates and recorded heights never mix.
func NewCached(p Provider, c cache.Cache, keyer cache.Keyer, source, fingerprint string) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cached{
		inner: p,
		cache: c,
		keyer: keyer,
		opts:  cache.MeasureKeyOpts{Source: source, Estimator: fingerprint},
	}
}

// Measure returns a cached result when available, otherwise measures and
// stores the result. Cache failures degrade to uncached measurement.
func (c *Cached) Measure(ctx context.Context, d Descriptor, width float64) (Result, error) {
	opts := c.opts
	opts.Width = width
	key := c.keyer.EntryKey(d.Hash(), opts)

	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		var r Result
		if json.Unmarshal(data, &r) == nil {
			observability.Cache().OnCacheHit(ctx, "entry")
			return r, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "entry")

	r, err := c.inner.Measure(ctx, d, width)
	if err != nil {
		return Result{}, err
	}
	if data, err := json.Marshal(r); err == nil {
		if c.cache.Set(ctx, key, data, cache.MeasureTTL) == nil {
			observability.Cache().OnCacheSet(ctx, "entry", len(data))
		}
	}
	return r, nil
}

var _ Provider = (*Cached)(nil)
