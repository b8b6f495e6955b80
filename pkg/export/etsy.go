package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

// EtsySheet is the Shop Uploader worksheet name.
const EtsySheet = "Template"

const (
	etsyCategory        = "Signs (2844)"
	etsyShippingProfile = "Postage 2025"
	etsyReturnPolicy    = "30 Day Returns"
	etsyProcessingTime  = "1-3 business days"
)

var etsyColumns = []string{
	"listing_id", "parent_sku", "sku", "title", "description", "price", "quantity",
	"category", "_primary_color", "_secondary_color", "tags", "materials",
	"image1", "image2", "image3", "image4", "image5",
	"variation_option1_name", "variation_option1_value",
	"variation_option2_name", "variation_option2_value",
	"shipping_profile", "return_policy", "processing_time",
}

// EtsyGroup is the products sharing one parent listing.
type EtsyGroup struct {
	Description string
	ParentSKU   string
	Products    []*product.Product
}

// GroupByDescription groups products by description, preserving first-seen
// order. The parent SKU is the first member's M Number.
func GroupByDescription(products []*product.Product) []EtsyGroup {
	var groups []EtsyGroup
	index := map[string]int{}
	for _, p := range products {
		desc := p.Description
		if desc == "" {
			desc = "Unknown"
		}
		i, ok := index[desc]
		if !ok {
			i = len(groups)
			index[desc] = i
			groups = append(groups, EtsyGroup{Description: desc, ParentSKU: p.MNumber})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

func etsyDescription(desc string, p *product.Product) string {
	return fmt.Sprintf(`%s

Premium quality brushed aluminium sign with UV-resistant printing.

SPECIFICATIONS:
• Size: %s
• Material: 1mm Brushed Aluminium
• Finish: %s
• Mounting: %s
• Weatherproof and UV resistant
• Rounded corners for safety

Perfect for offices, warehouses, shops, and public spaces.

SHIPPING:
Free UK delivery. Dispatched within 1-3 business days.
`, desc, p.Size.DisplayMM(), p.Color.Display(), p.Mounting.Display())
}

// WriteEtsy writes an Etsy Shop Uploader file for products to w.
func WriteEtsy(w io.Writer, products []*product.Product, opts Options) error {
	if len(products) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no products to export")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", EtsySheet); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create sheet")
	}
	sw := sheetWriter{f: f, sheet: EtsySheet}
	sw.header(1, etsyColumns)

	row := 2
	for _, g := range GroupByDescription(products) {
		for _, p := range g.Products {
			color := p.Color.Display()
			spec := p.Size.Spec()
			values := []any{
				"",
				g.ParentSKU,
				p.MNumber,
				truncate(fmt.Sprintf("%s Sign - %s Brushed Aluminium - %s", g.Description, p.Size.DisplayMM(), color), 140),
				etsyDescription(g.Description, p),
				spec.Price,
				Quantity,
				etsyCategory,
				color,
				"",
				etsyTags(g.Description, color),
				Material,
				opts.ImageURL(p.MNumber, render.ImageMain),
				opts.ImageURL(p.MNumber, render.ImageDimensions),
				opts.ImageURL(p.MNumber, render.ImagePeelAndStick),
				opts.ImageURL(p.MNumber, render.ImageRear),
				"",
				"Size",
				p.Size.DisplayMM(),
				"Colour",
				color,
				etsyShippingProfile,
				etsyReturnPolicy,
				etsyProcessingTime,
			}
			for i, v := range values {
				sw.set(i+1, row, v)
			}
			row++
		}
	}

	sw.widths(len(etsyColumns), 18)
	if sw.err != nil {
		return errors.Wrap(errors.ErrCodeInternal, sw.err, "write etsy file")
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write etsy file")
	}
	return nil
}

// etsyTags returns the comma-separated tag list. Etsy allows 13 tags of up
// to 20 characters; longer descriptions are cut.
func etsyTags(desc, color string) string {
	first := []rune(strings.ToLower(desc))
	if len(first) > 20 {
		first = first[:20]
	}
	tags := []string{
		string(first), "sign", "aluminium sign", "safety sign", strings.ToLower(color) + " sign",
		"office sign", "warehouse sign", "self adhesive sign", "weatherproof sign", "uk sign",
	}
	return strings.Join(tags, ",")
}
