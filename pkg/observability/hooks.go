// Package observability lets the binary attach metrics or logging to the
// variant driver, the raster cache and storage uploads without those
// packages depending on any backend.
//
// Hooks are registered once at startup:
//
//	observability.SetVariantHooks(cli.NewLogHooks(logger))
//
// and libraries emit events through the accessors:
//
//	observability.Variant().OnVariantStart(ctx, "M1001", "001")
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Variant Hooks
// =============================================================================

// VariantHooks receives events from image generation.
type VariantHooks interface {
	OnVariantStart(ctx context.Context, mNumber, code string)
	OnVariantComplete(ctx context.Context, mNumber, code string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache lookups. kind is "raster" or
// "thumbnail".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// Upload Hooks
// =============================================================================

// UploadHooks receives events from object storage.
type UploadHooks interface {
	OnUpload(ctx context.Context, bucket, key string, size int64, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

type NoopVariantHooks struct{}

func (NoopVariantHooks) OnVariantStart(context.Context, string, string) {}
func (NoopVariantHooks) OnVariantComplete(context.Context, string, string, time.Duration, error) {
}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopUploadHooks struct{}

func (NoopUploadHooks) OnUpload(context.Context, string, string, int64, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	hooksMu      sync.RWMutex
	variantHooks VariantHooks = NoopVariantHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	uploadHooks  UploadHooks  = NoopUploadHooks{}
)

// SetVariantHooks registers h. A nil h is ignored.
func SetVariantHooks(h VariantHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		variantHooks = h
	}
}

// SetCacheHooks registers h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetUploadHooks registers h. A nil h is ignored.
func SetUploadHooks(h UploadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		uploadHooks = h
	}
}

func Variant() VariantHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return variantHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func Upload() UploadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return uploadHooks
}

// Reset restores the no-op hooks.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	variantHooks = NoopVariantHooks{}
	cacheHooks = NoopCacheHooks{}
	uploadHooks = NoopUploadHooks{}
}
