// Package pipeline turns one product into its four marketplace images.
//
// For every image type the [Runner] parameterizes the product's SVG
// template and rasterizes it through a headless browser:
//
//	runner := pipeline.NewRunner(pz, rasterizer, cache, nil, logger)
//	results := runner.GenerateAll(ctx, product)
//	for _, r := range results {
//	    if r.Err != nil {
//	        log.Warn("variant failed", "name", r.Key.Name(), "err", r.Err)
//	        continue
//	    }
//	    os.WriteFile(r.Key.FileName(), r.Image.Data, 0o644)
//	}
//
// The batch never aborts: a failing variant is reported in its own
// [Result] while the others complete. Rasters are cached by the hash of
// the SVG they were produced from, so generating an unchanged product a
// second time reads every image from the cache.
package pipeline

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
	"github.com/northbynortheast/signmaker/pkg/render/raster"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultConcurrency is how many variants of one product render at once.
	DefaultConcurrency = 4

	// RasterExt is the extension of generated images.
	RasterExt = ".png"
)

// =============================================================================
// Variants
// =============================================================================

// VariantKey identifies one generated image.
type VariantKey struct {
	MNumber   string
	ImageType render.ImageType
	Color     product.Color
	Size      product.Size
	Mounting  product.Mounting
}

// KeyFor returns the key of p's image of type t.
func KeyFor(p *product.Product, t render.ImageType) VariantKey {
	return VariantKey{MNumber: p.MNumber, ImageType: t, Color: p.Color, Size: p.Size, Mounting: p.Mounting}
}

// Code returns the image type code, e.g. "001".
func (k VariantKey) Code() string { return k.ImageType.Code() }

// Name returns "M1001 - 001".
func (k VariantKey) Name() string { return VariantName(k.MNumber, k.Code()) }

// FileName returns "M1001 - 001.png".
func (k VariantKey) FileName() string { return FileName(k.MNumber, k.Code()) }

func (k VariantKey) String() string { return k.Name() }

// Result is the outcome of one variant. Exactly one of Image and Err is set.
//
// The cache holds PNG bytes only, so on a CacheHit Image.ContentBox is the
// zero Box.
type Result struct {
	Key      VariantKey
	SVG      render.Document
	Image    raster.PixelImage
	Err      error
	CacheHit bool
	Duration time.Duration
}

// OK reports whether the variant succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Failed returns the failed results, in order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// Naming
// =============================================================================

// ImageTypes returns the marketplace image types in generation order.
func ImageTypes() []render.ImageType {
	return append([]render.ImageType(nil), render.MarketplaceTypes...)
}

// ParseImageType accepts a name ("main") or code ("001").
func ParseImageType(s string) (render.ImageType, error) {
	return render.ParseImageType(s)
}

// VariantName returns "{m} - {code}".
func VariantName(mNumber, code string) string {
	return fmt.Sprintf("%s - %s", mNumber, code)
}

// FileName returns "{m} - {code}.png".
func FileName(mNumber, code string) string {
	return VariantName(mNumber, code) + RasterExt
}

// PublicURL joins base and the variant file name, percent-encoding spaces
// as %20: PublicURL("https://cdn", "M1001", "001") is
// "https://cdn/M1001%20-%20001.png".
func PublicURL(base, mNumber, code string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(FileName(mNumber, code))
}
