package io

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

type catalogue struct {
	Products []*product.Product `json:"products"`
}

// csvRow is the flat CSV shape of a product.
type csvRow struct {
	MNumber     string  `csv:"m_number"`
	Description string  `csv:"description"`
	Size        string  `csv:"size"`
	Color       string  `csv:"color"`
	Orientation string  `csv:"orientation"`
	Mounting    string  `csv:"mounting_type"`
	LayoutMode  string  `csv:"layout_mode"`
	Font        string  `csv:"font"`
	Icons       string  `csv:"icon_files"`
	Text1       string  `csv:"text_1"`
	Text2       string  `csv:"text_2"`
	Text3       string  `csv:"text_3"`
	IconScale   float64 `csv:"icon_scale"`
	TextScale   float64 `csv:"text_scale"`
	IconOffsetX float64 `csv:"icon_offset_x"`
	IconOffsetY float64 `csv:"icon_offset_y"`
	EAN         string  `csv:"ean"`
	QAStatus    string  `csv:"qa_status"`
	QAComment   string  `csv:"qa_comment"`
}

const iconSep = ";"

func toRow(p *product.Product) *csvRow {
	row := &csvRow{
		MNumber:     p.MNumber,
		Description: p.Description,
		Size:        string(p.Size),
		Color:       string(p.Color),
		Orientation: string(p.Orientation),
		Mounting:    string(p.Mounting),
		LayoutMode:  string(p.LayoutMode),
		Font:        string(p.Font),
		Icons:       strings.Join(p.Icons, iconSep),
		IconScale:   p.IconScale,
		TextScale:   p.TextScale,
		IconOffsetX: p.IconOffsetX,
		IconOffsetY: p.IconOffsetY,
		EAN:         p.EAN,
		QAStatus:    string(p.QAStatus),
		QAComment:   p.QAComment,
	}
	texts := []*string{&row.Text1, &row.Text2, &row.Text3}
	for i, line := range p.TextLines {
		if i < len(texts) {
			*texts[i] = line.Text
		}
	}
	return row
}

// product converts a row back. Enum spellings are canonicalized later by
// Normalize; zero scales take their defaults there too.
func (r *csvRow) product() *product.Product {
	p := &product.Product{
		MNumber:     r.MNumber,
		Description: r.Description,
		Size:        product.Size(r.Size),
		Color:       product.Color(r.Color),
		Orientation: product.Orientation(r.Orientation),
		Mounting:    product.Mounting(r.Mounting),
		LayoutMode:  product.LayoutMode(r.LayoutMode),
		Font:        product.Font(r.Font),
		IconScale:   r.IconScale,
		TextScale:   r.TextScale,
		IconOffsetX: r.IconOffsetX,
		IconOffsetY: r.IconOffsetY,
		EAN:         r.EAN,
		QAStatus:    product.QAStatus(r.QAStatus),
		QAComment:   r.QAComment,
	}
	for _, icon := range strings.Split(r.Icons, iconSep) {
		if icon = strings.TrimSpace(icon); icon != "" {
			p.Icons = append(p.Icons, icon)
		}
	}
	for _, text := range []string{r.Text1, r.Text2, r.Text3} {
		if text != "" {
			p.TextLines = append(p.TextLines, product.TextLine{Text: text})
		}
	}
	return p
}

// WriteJSON writes products as an indented JSON catalogue. The output can
// be read back with [ReadJSON].
func WriteJSON(w io.Writer, products []*product.Product) error {
	if products == nil {
		products = []*product.Product{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(catalogue{Products: products}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "encode catalogue")
	}
	return nil
}

// WriteCSV writes products as a CSV catalogue. Per-line text scales are not
// part of the CSV shape.
func WriteCSV(w io.Writer, products []*product.Product) error {
	rows := make([]*csvRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, toRow(p))
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "encode catalogue")
	}
	return nil
}

// Write encodes products in the given format.
func Write(w io.Writer, products []*product.Product, f Format) error {
	if f == FormatCSV {
		return WriteCSV(w, products)
	}
	return WriteJSON(w, products)
}

// ExportFile writes products to path, choosing the format by extension.
func ExportFile(path string, products []*product.Product) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	if err := Write(file, products, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	return nil
}
