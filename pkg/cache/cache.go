// Package cache stores cleaned elevation grids between runs.
//
// Loading a DEM window means decoding compressed strips and cleaning every
// sample, which dominates start-up for large tiles. The pipeline keys a grid
// by the raster file's identity and the crop settings, so a repeated run over
// the same area skips the raster entirely.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entries under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for render farms
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"fmt"
	"time"
)

// TTLGrid is how long a cached grid stays valid. The key already changes
// when the source file does, so this only bounds disk usage.
const TTLGrid = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// GridKeyOpts identifies a cleaned grid: the source file and everything
// that changes how its window is read and cleaned.
type GridKeyOpts struct {
	Path         string
	Size         int64
	ModTime      time.Time
	West, South  float64
	East, North  float64
	ZeroIsNoData bool
}

// GridKey returns the cache key of a cleaned grid.
func GridKey(opts GridKeyOpts) string {
	return hashKey("grid",
		opts.Path,
		opts.Size,
		opts.ModTime.UTC().Format(time.RFC3339Nano),
		fmt.Sprintf("%.9f,%.9f,%.9f,%.9f", opts.West, opts.South, opts.East, opts.North),
		opts.ZeroIsNoData,
	)
}
