// Package export writes the marketplace listing files and the image
// bundles handed to staff.
//
// Listing files:
//
//   - [WriteAmazon]: Amazon flatfile XLSX with one parent and a child per product
//   - [WriteEtsy]: Etsy Shop Uploader XLSX, grouped by description
//   - [WriteEbay]: eBay File Exchange CSV
//
// Bundles:
//
//   - [WriteImagesZip]: the four PNGs of one product
//   - [WriteFolders]: the staff folder tree per M Number, with the print
//     master SVG and PNG plus JPEG images
package export

import (
	"context"

	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

// Listing defaults shared by the marketplace files.
const (
	Brand        = "NorthByNorthEast"
	Manufacturer = "North By North East Print and Sign Limited"
	Country      = "Great Britain"
	Material     = "Aluminium"
	Quantity     = 10
)

// Options carries settings common to the listing exports.
type Options struct {
	// PublicURL is the base URL images are served from.
	PublicURL string
}

// ImageURL returns the public URL of a product image, or "" without a base.
func (o Options) ImageURL(mNumber string, t render.ImageType) string {
	if o.PublicURL == "" {
		return ""
	}
	return pipeline.PublicURL(o.PublicURL, mNumber, t.Code())
}

// Generator produces images for the bundle exports. *pipeline.Runner
// satisfies it.
type Generator interface {
	GenerateAll(ctx context.Context, p *product.Product) []pipeline.Result
	Master(ctx context.Context, p *product.Product) (render.Document, error)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
