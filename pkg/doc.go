// Package pkg holds the libraries behind SignMaker, which turns sign
// product records into marketplace images and listing files.
//
// # Overview
//
// A product (size, colour, mounting, layout mode, icons, text) is rendered
// into four marketplace images and a print master. The packages are split
// by concern:
//
//  1. [product] - the product model, validation and the SQLite and MongoDB stores
//  2. [bounds] - the template bounds registry and the layout mode table
//  3. [render] - SVG parameterization from templates and icons
//  4. [render/raster] - SVG to PNG through headless Chromium
//  5. [pipeline] - per-variant generation, naming, caching and batches
//  6. [export] - Amazon, Etsy and eBay listing files and ZIP bundles
//
// Supporting packages: [cache] (raster cache backends), [storage] (R2
// uploads), [jobs] (background queue), [io] (catalogue import and export),
// [config], [errors], [observability], [httputil] and [buildinfo].
//
// # Data Flow
//
//	product.Store
//	     ↓
//	render.Parameterizer   (template + bounds + layout → SVG)
//	     ↓
//	raster.Rasterizer      (SVG → PNG, measured content box)
//	     ↓
//	pipeline.Runner        (001..004, cache, batch)
//	     ↓
//	files / R2 / export bundles
//
// # Quick Start
//
//	pz, _ := render.New(render.Options{})
//	rz, _ := raster.New(raster.Options{})
//	defer rz.Close()
//	runner := pipeline.NewRunner(pz, rz, cache.NewNullCache(), nil, logger)
//	for _, res := range runner.GenerateAll(ctx, p) {
//	    if res.Err == nil {
//	        os.WriteFile(res.Key.FileName(), res.Image.Data, 0o644)
//	    }
//	}
//
// [product]: github.com/northbynortheast/signmaker/pkg/product
// [bounds]: github.com/northbynortheast/signmaker/pkg/bounds
// [render]: github.com/northbynortheast/signmaker/pkg/render
// [render/raster]: github.com/northbynortheast/signmaker/pkg/render/raster
// [pipeline]: github.com/northbynortheast/signmaker/pkg/pipeline
// [export]: github.com/northbynortheast/signmaker/pkg/export
// [cache]: github.com/northbynortheast/signmaker/pkg/cache
// [storage]: github.com/northbynortheast/signmaker/pkg/storage
// [jobs]: github.com/northbynortheast/signmaker/pkg/jobs
// [io]: github.com/northbynortheast/signmaker/pkg/io
// [config]: github.com/northbynortheast/signmaker/pkg/config
// [errors]: github.com/northbynortheast/signmaker/pkg/errors
// [observability]: github.com/northbynortheast/signmaker/pkg/observability
// [httputil]: github.com/northbynortheast/signmaker/pkg/httputil
// [buildinfo]: github.com/northbynortheast/signmaker/pkg/buildinfo
package pkg
