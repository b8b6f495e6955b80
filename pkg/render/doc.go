// Package render turns a product into a parameterized SVG document.
//
// # Overview
//
// A [Parameterizer] starts from a fixed template for the product's size and
// image type, then overlays icons and text into the regions that the
// bounds package assigns to the product's layout mode. Nothing in a
// template is laid out dynamically: every coordinate comes either from the
// template itself or from the two bounds tables.
//
//	p, _ := render.New(render.Options{})
//	doc, err := p.Render(ctx, prod, render.ImageMain)
//	// doc.Bytes is a complete SVG; feed it to raster.Rasterizer
//
// # Assets
//
// Templates and icons are read through [io/fs] so the embedded defaults can
// be layered under a directory on disk (see [Layered]). Template names
// follow "{color}_{size}[_portrait]_{type}.svg" with a color-free
// "{size}[_portrait]_{type}.svg" fallback.
//
// # Composition
//
// Icons are scaled by IconScale about the centre of their layout box, then
// moved by (IconOffsetX, IconOffsetY) millimetres. Text size is the slot's
// fitted size times TextScale times the line's own scale. Offsets never
// move text.
//
// Output is byte-for-byte deterministic for the same product and assets,
// which lets the pipeline cache rasters by SVG hash.
//
// Rasterization lives in the [raster] subpackage.
//
// [raster]: github.com/northbynortheast/signmaker/pkg/render/raster
package render
