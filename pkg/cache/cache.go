// Package cache stores rendered rasters and previews keyed by content hash.
//
// Backends:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for the API server
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so that callers never build key strings by hand.
// A raster key is derived from the SHA-256 of the parameterized SVG and the
// device scale factor, so any change to product data, templates, icons or
// bounds produces a new key and stale entries are simply never read.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	TTLRaster    = 7 * 24 * time.Hour
	TTLThumbnail = 24 * time.Hour
)

// Keyer builds cache keys.
type Keyer interface {
	// RasterKey identifies the PNG produced from an SVG with the given hash
	// at the given device scale factor.
	RasterKey(svgHash string, scale float64) string

	// ThumbnailKey identifies a downsized copy of a raster.
	ThumbnailKey(rasterHash string, width int) string
}

// DefaultKeyer produces "raster:<sha256>" style keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RasterKey implements Keyer.
func (DefaultKeyer) RasterKey(svgHash string, scale float64) string {
	return hashKey("raster", svgHash, strconv.FormatFloat(scale, 'g', -1, 64))
}

// ThumbnailKey implements Keyer.
func (DefaultKeyer) ThumbnailKey(rasterHash string, width int) string {
	return hashKey("thumb", rasterHash, width)
}

var _ Keyer = DefaultKeyer{}
