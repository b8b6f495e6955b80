package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	_ "image/png"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/northbynortheast/signmaker/pkg/cache"
	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/observability"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
	"github.com/northbynortheast/signmaker/pkg/render/raster"
)

// Renderer produces the SVG for one image of a product.
type Renderer interface {
	Render(ctx context.Context, p *product.Product, t render.ImageType) (render.Document, error)
}

// Rasterizer converts an SVG document to pixels.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc render.Document) (raster.PixelImage, error)
	Scale() float64
}

// Runner generates product images with caching. It keeps no per-product
// state, so one Runner may serve many goroutines.
type Runner struct {
	Renderer    Renderer
	Rasterizer  Rasterizer
	Cache       cache.Cache
	Keyer       cache.Keyer
	Logger      *log.Logger
	Concurrency int
}

// NewRunner wires a runner. A nil cache disables caching, a nil keyer uses
// the default keyer and a nil logger discards output.
func NewRunner(rd Renderer, rz Rasterizer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Renderer:    rd,
		Rasterizer:  rz,
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		Concurrency: DefaultConcurrency,
	}
}

// GenerateAll renders every marketplace image of p. It always returns one
// Result per image type, in code order.
//
// An invalid product yields the validation error in every result without
// rendering anything. When ctx is cancelled, variants that had not finished
// carry context.Canceled and no image.
func (r *Runner) GenerateAll(ctx context.Context, p *product.Product) []Result {
	types := ImageTypes()
	results := make([]Result, len(types))
	for i, t := range types {
		results[i].Key = KeyFor(p, t)
	}

	checked := p.Clone()
	checked.Normalize()
	if err := checked.Validate(); err != nil {
		r.Logger.Warn("product failed validation", "m_number", p.MNumber, "err", err)
		for i := range results {
			results[i].Err = err
		}
		return results
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(max(r.Concurrency, 1))
	for i, t := range types {
		g.Go(func() error {
			results[i] = r.variant(ctx, checked, t)
			return nil
		})
	}
	_ = g.Wait()

	failed := len(Failed(results))
	r.Logger.Info("generated product images",
		"m_number", p.MNumber,
		"ok", len(results)-failed,
		"failed", failed,
		"duration", time.Since(start))
	return results
}

// Render generates a single image of p.
func (r *Runner) Render(ctx context.Context, p *product.Product, t render.ImageType) Result {
	return r.variant(ctx, p, t)
}

// SVG returns the parameterized document without rasterizing it.
func (r *Runner) SVG(ctx context.Context, p *product.Product, t render.ImageType) (render.Document, error) {
	return r.Renderer.Render(ctx, p, t)
}

// Master returns the print master SVG of p.
func (r *Runner) Master(ctx context.Context, p *product.Product) (render.Document, error) {
	return r.Renderer.Render(ctx, p, render.ImageMaster)
}

func (r *Runner) variant(ctx context.Context, p *product.Product, t render.ImageType) (res Result) {
	res.Key = KeyFor(p, t)
	start := time.Now()
	observability.Variant().OnVariantStart(ctx, res.Key.MNumber, res.Key.Code())
	defer func() {
		res.Duration = time.Since(start)
		observability.Variant().OnVariantComplete(ctx, res.Key.MNumber, res.Key.Code(), res.Duration, res.Err)
		if res.Err != nil {
			r.Logger.Warn("variant failed", "variant", res.Key.Name(), "code", errors.GetCode(res.Err), "err", res.Err)
		} else {
			r.Logger.Debug("generated variant", "variant", res.Key.Name(), "cache_hit", res.CacheHit, "duration", res.Duration)
		}
	}()

	doc, err := r.Renderer.Render(ctx, p, t)
	if err != nil {
		res.Err = err
		return res
	}
	res.SVG = doc

	img, hit, err := r.rasterize(ctx, doc)
	if err != nil {
		res.Err = err
		return res
	}
	res.Image, res.CacheHit = img, hit
	return res
}

// rasterize returns the cached raster for doc or renders and stores it.
func (r *Runner) rasterize(ctx context.Context, doc render.Document) (raster.PixelImage, bool, error) {
	if r.Rasterizer == nil {
		return raster.PixelImage{}, false, errors.New(errors.ErrCodeConfiguration, "no rasterizer configured")
	}
	key := r.Keyer.RasterKey(cache.Hash(doc.Bytes), r.Rasterizer.Scale())

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			observability.Cache().OnCacheHit(ctx, "raster")
			return raster.PixelImage{Data: data, Width: cfg.Width, Height: cfg.Height}, true, nil
		}
	} else if err != nil {
		r.Logger.Debug("raster cache read failed", "err", err)
	}
	observability.Cache().OnCacheMiss(ctx, "raster")

	img, err := r.Rasterizer.Rasterize(ctx, doc)
	if err != nil {
		if stderrors.Is(err, context.Canceled) && ctx.Err() != nil {
			return raster.PixelImage{}, false, ctx.Err()
		}
		return raster.PixelImage{}, false, err
	}

	if err := r.Cache.Set(ctx, key, img.Data, cache.TTLRaster); err != nil {
		r.Logger.Debug("raster cache write failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "raster", len(img.Data))
	}
	return img, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
