// Package cache stores measurement snapshots and rendered artifacts between
// runs.
//
// Measuring a document is the expensive phase of a run; planning is a pure
// function over the measurements and is always recomputed. The cache therefore
// holds two kinds of values:
//
//   - measurement snapshots, keyed by document content, column width and
//     measurement source
//   - rendered artifacts, keyed by plan hash and output format
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments, and [NullCache] when caching is disabled.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// MeasureTTL bounds how long a measurement snapshot is reused.
	MeasureTTL = 7 * 24 * time.Hour

	// ArtifactTTL bounds how long a rendered artifact is reused.
	ArtifactTTL = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. The boolean is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
