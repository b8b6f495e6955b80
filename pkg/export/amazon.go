package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

// AmazonSheet is the worksheet name Amazon expects.
const AmazonSheet = "Template"

// Flatfile row numbers.
const (
	amazonMetaRow   = 1
	amazonLabelRow  = 2
	amazonAttrRow   = 3
	amazonParentRow = 4
	amazonFirstRow  = 5
)

// AmazonRequest carries the listing copy for a flatfile.
type AmazonRequest struct {
	// Theme names the product family, e.g. "No Entry". It defaults to the
	// first product's description.
	Theme string `json:"theme"`

	// UseCases is free text appended to the description and keywords,
	// e.g. "offices, car parks".
	UseCases string `json:"use_cases"`
}

type amazonColumn struct{ attr, label string }

var amazonColumns = []amazonColumn{
	{"feed_product_type", "Product Type"},
	{"item_sku", "Seller SKU"},
	{"update_delete", "Update Delete"},
	{"brand_name", "Brand Name"},
	{"external_product_id", "Product ID"},
	{"external_product_id_type", "Product ID Type"},
	{"product_description", "Product Description"},
	{"part_number", "Part Number"},
	{"manufacturer", "Manufacturer"},
	{"item_name", "Item Name"},
	{"recommended_browse_nodes", "Browse Nodes"},
	{"main_image_url", "Main Image URL"},
	{"other_image_url1", "Other Image 1"},
	{"other_image_url2", "Other Image 2"},
	{"other_image_url3", "Other Image 3"},
	{"relationship_type", "Relationship Type"},
	{"variation_theme", "Variation Theme"},
	{"parent_sku", "Parent SKU"},
	{"parent_child", "Parentage"},
	{"style_name", "Style Name"},
	{"bullet_point1", "Bullet 1"},
	{"bullet_point2", "Bullet 2"},
	{"bullet_point3", "Bullet 3"},
	{"bullet_point4", "Bullet 4"},
	{"bullet_point5", "Bullet 5"},
	{"generic_keywords", "Search Terms"},
	{"color_name", "Colour"},
	{"size_name", "Size"},
	{"color_map", "Colour Map"},
	{"size_map", "Size Map"},
	{"list_price_with_tax", "List Price"},
	{"country_of_origin", "Country"},
}

// AmazonColumn returns the 1-based column of an attribute, or 0.
func AmazonColumn(attr string) int {
	for i, c := range amazonColumns {
		if c.attr == attr {
			return i + 1
		}
	}
	return 0
}

const (
	amazonProductType = "signage"
	amazonBrowseNode  = "330215031"
	amazonVariation   = "Size & Colour"
	amazonKeywords    = "sign warning notice metal plaque weatherproof aluminium"
)

var nonSKU = regexp.MustCompile(`[^A-Z0-9_]`)

// ParentSKU derives the parent SKU from a theme: upper-cased, spaces and
// hyphens to underscores, everything else non-alphanumeric dropped, with
// a _PARENT suffix.
func ParentSKU(theme string) string {
	s := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToUpper(theme))
	s = nonSKU.ReplaceAllString(s, "")
	if !strings.HasSuffix(s, "_PARENT") {
		s += "_PARENT"
	}
	return s
}

func amazonBullets(p *product.Product) [5]string {
	mounting := "Self-adhesive backing allows quick peel and stick installation"
	if p.Mounting == product.MountingPreDrilled {
		mounting = "Pre-drilled corner holes for secure screw fixing"
	}
	return [5]string{
		"Premium 1mm brushed aluminium construction with elegant finish",
		"UV-resistant printing technology ensures text remains clear and legible",
		mounting,
		"Fully weatherproof design withstands rain, snow, and temperature extremes",
		"Clear, bold messaging ensures excellent visibility and compliance",
	}
}

// WriteAmazon writes an Amazon flatfile for products to w.
func WriteAmazon(w io.Writer, products []*product.Product, req AmazonRequest, opts Options) error {
	if len(products) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no products to export")
	}
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		theme = products[0].Description
	}
	if theme == "" {
		theme = "Sign"
	}
	parent := ParentSKU(theme)

	description := fmt.Sprintf("%s Sign – Brushed Aluminium, Weatherproof, Self-Adhesive.", theme)
	keywords := amazonKeywords
	if uc := strings.TrimSpace(req.UseCases); uc != "" {
		description += " Ideal for " + uc + "."
		keywords += " " + strings.ReplaceAll(uc, ",", "")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", AmazonSheet); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create sheet")
	}

	sw := sheetWriter{f: f, sheet: AmazonSheet}
	sw.set(1, amazonMetaRow, "TemplateType=signage")
	sw.set(2, amazonMetaRow, "Version=2025.1")
	sw.set(3, amazonMetaRow, "The top 3 rows are for Amazon.com use only. Do not modify or delete the top 3 rows.")
	for i, c := range amazonColumns {
		sw.set(i+1, amazonLabelRow, c.label)
		sw.set(i+1, amazonAttrRow, c.attr)
	}

	sw.row(amazonParentRow, amazonColumns, map[string]any{
		"feed_product_type": amazonProductType,
		"item_sku":          parent,
		"update_delete":     "Update",
		"brand_name":        Brand,
		"item_name":         fmt.Sprintf("%s Sign – Brushed Aluminium", theme),
		"variation_theme":   amazonVariation,
		"parent_child":      "Parent",
		"country_of_origin": Country,
	})

	for i, p := range products {
		spec := p.Size.Spec()
		wcm, hcm := p.Size.DimensionsCM()
		bullets := amazonBullets(p)
		idType := ""
		if p.EAN != "" {
			idType = "EAN"
		}
		sw.row(amazonFirstRow+i, amazonColumns, map[string]any{
			"feed_product_type":        amazonProductType,
			"item_sku":                 p.MNumber,
			"update_delete":            "Update",
			"brand_name":               Brand,
			"external_product_id":      p.EAN,
			"external_product_id_type": idType,
			"product_description":      description,
			"part_number":              p.MNumber,
			"manufacturer":             Manufacturer,
			"item_name":                fmt.Sprintf("%s Sign – %gx%gcm Brushed Aluminium", theme, wcm, hcm),
			"recommended_browse_nodes": amazonBrowseNode,
			"main_image_url":           opts.ImageURL(p.MNumber, render.ImageMain),
			"other_image_url1":         opts.ImageURL(p.MNumber, render.ImageDimensions),
			"other_image_url2":         opts.ImageURL(p.MNumber, render.ImagePeelAndStick),
			"other_image_url3":         opts.ImageURL(p.MNumber, render.ImageRear),
			"relationship_type":        "Variation",
			"variation_theme":          amazonVariation,
			"parent_sku":               parent,
			"parent_child":             "Child",
			"style_name":               p.Color.Display() + "_" + spec.Code,
			"bullet_point1":            bullets[0],
			"bullet_point2":            bullets[1],
			"bullet_point3":            bullets[2],
			"bullet_point4":            bullets[3],
			"bullet_point5":            bullets[4],
			"generic_keywords":         keywords,
			"color_name":               p.Color.Display(),
			"size_name":                spec.Code,
			"color_map":                p.Color.Display(),
			"size_map":                 spec.Code,
			"list_price_with_tax":      strconv.FormatFloat(spec.Price, 'f', 2, 64),
			"country_of_origin":        Country,
		})
	}

	sw.widths(len(amazonColumns), 18)
	if sw.err != nil {
		return errors.Wrap(errors.ErrCodeInternal, sw.err, "write flatfile")
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write flatfile")
	}
	return nil
}

// sheetWriter keeps the first excelize error so row writes stay readable.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (s *sheetWriter) set(col, row int, v any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellValue(s.sheet, cell, v)
}

func (s *sheetWriter) row(row int, cols []amazonColumn, values map[string]any) {
	for i, c := range cols {
		v, ok := values[c.attr]
		if !ok {
			v = ""
		}
		s.set(i+1, row, v)
	}
}

func (s *sheetWriter) header(row int, names []string) {
	for i, n := range names {
		s.set(i+1, row, n)
	}
}

func (s *sheetWriter) widths(n int, width float64) {
	if s.err != nil || n == 0 {
		return
	}
	last, err := excelize.ColumnNumberToName(n)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetColWidth(s.sheet, "A", last, width)
}
