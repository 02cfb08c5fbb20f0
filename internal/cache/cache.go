// Package cache stores scored snapshots for a short time so that a failed
// upstream fetch can fall back to the last good result.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL is how long a snapshot is kept.
const DefaultTTL = 10 * time.Minute

// SnapshotCache stores snapshots by key with a time to live.
// Implementations are safe for concurrent use. Concurrent puts to the same
// key are last-writer-wins.
type SnapshotCache interface {
	// Get returns the snapshot stored under key or ErrCacheMiss.
	Get(ctx context.Context, key string) (*airquality.Snapshot, error)

	// Put stores snap under key for ttl.
	Put(ctx context.Context, key string, snap *airquality.Snapshot, ttl time.Duration) error

	// Backend names the storage for status reporting.
	Backend() string
}

// Key builds the cache key for a city tag and coordinate. Coordinates are
// rounded to four decimals (about 11 m) so nearby requests share an entry.
func Key(city string, coord airquality.Coordinate) string {
	return fmt.Sprintf("aq:current:%s:%.4f:%.4f", strings.ToLower(city), coord.Lat, coord.Lon)
}
