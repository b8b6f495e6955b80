// Package product defines the signage product model and its persistence.
//
// A Product is one SKU: a single color, size, mounting and layout. The
// rendering pipeline reads products but never writes them; all writes go
// through a [Store] from the CLI or the HTTP API.
//
// # Enumerations
//
// Sizes, colors, mountings, layout modes and fonts are closed sets. Parse
// functions accept the display spellings users type ("Pre-Drilled",
// "Dracula") as well as the canonical identifiers, and reject anything else
// with an INVALID_INPUT error before any render is attempted.
package product

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// =============================================================================
// Enumerations
// =============================================================================

// Color is the sign finish.
type Color string

const (
	ColorSilver Color = "silver"
	ColorGold   Color = "gold"
	ColorWhite  Color = "white"
)

// Size is one of the five fixed sign blanks.
type Size string

const (
	SizeDracula   Size = "dracula"
	SizeSaville   Size = "saville"
	SizeDick      Size = "dick"
	SizeBarzan    Size = "barzan"
	SizeBabyJesus Size = "baby_jesus"
)

// Mounting is how the sign is fixed to a surface.
type Mounting string

const (
	MountingSelfAdhesive Mounting = "self_adhesive"
	MountingPreDrilled   Mounting = "pre_drilled"
)

// Orientation applies to sizes that have portrait templates.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// LayoutMode selects a row group in the layout bounds table.
type LayoutMode string

const (
	LayoutA LayoutMode = "A"
	LayoutB LayoutMode = "B"
	LayoutC LayoutMode = "C"
	LayoutD LayoutMode = "D"
	LayoutE LayoutMode = "E"
	LayoutF LayoutMode = "F"
)

// Font names a text style.
type Font string

const (
	FontArialHeavy Font = "arial_heavy"
	FontArialBold  Font = "arial_bold"
)

// QAStatus tracks manual review of the rendered images.
type QAStatus string

const (
	QAPending  QAStatus = "pending"
	QAApproved QAStatus = "approved"
	QARejected QAStatus = "rejected"
)

// Sizes lists every size in catalogue order (smallest first).
var Sizes = []Size{SizeDracula, SizeSaville, SizeDick, SizeBarzan, SizeBabyJesus}

// Colors lists every color.
var Colors = []Color{ColorSilver, ColorGold, ColorWhite}

// LayoutModes lists every layout mode.
var LayoutModes = []LayoutMode{LayoutA, LayoutB, LayoutC, LayoutD, LayoutE, LayoutF}

// =============================================================================
// Catalogue Data
// =============================================================================

// SizeSpec is the fixed physical and commercial data for a size.
type SizeSpec struct {
	Display  string  // Folder and style label, e.g. "Dracula"
	Code     string  // Marketplace size code, e.g. "XS"
	WidthMM  float64 // Physical width
	HeightMM float64 // Physical height
	Circular bool
	Price    float64 // List price in GBP including tax
}

var sizeSpecs = map[Size]SizeSpec{
	SizeDracula:   {Display: "Dracula", Code: "XS", WidthMM: 95, HeightMM: 95, Circular: true, Price: 10.99},
	SizeSaville:   {Display: "Saville", Code: "S", WidthMM: 110, HeightMM: 95, Price: 11.99},
	SizeDick:      {Display: "Dick", Code: "M", WidthMM: 140, HeightMM: 90, Price: 12.99},
	SizeBarzan:    {Display: "Barzan", Code: "L", WidthMM: 190, HeightMM: 140, Price: 15.99},
	SizeBabyJesus: {Display: "Baby_Jesus", Code: "XL", WidthMM: 290, HeightMM: 190, Price: 17.99},
}

// Spec returns the catalogue data for s. Unknown sizes return the zero spec.
func (s Size) Spec() SizeSpec { return sizeSpecs[s] }

// Circular reports whether the blank is round.
func (s Size) Circular() bool { return sizeSpecs[s].Circular }

// Padding is the inset in millimetres between the template's sign bounds
// and the area overlays may occupy.
func (s Size) Padding() float64 {
	if s.Circular() {
		return 4
	}
	return 3
}

// DimensionsCM returns the physical size in centimetres, longer edge first.
func (s Size) DimensionsCM() (float64, float64) {
	spec := sizeSpecs[s]
	return spec.WidthMM / 10, spec.HeightMM / 10
}

// DisplayMM returns a label such as "110mm x 95mm".
func (s Size) DisplayMM() string {
	spec := sizeSpecs[s]
	return fmt.Sprintf("%gmm x %gmm", spec.WidthMM, spec.HeightMM)
}

// DisplayCM returns a label such as "11 x 9.5 cm".
func (s Size) DisplayCM() string {
	w, h := s.DimensionsCM()
	return fmt.Sprintf("%g x %g cm", w, h)
}

// Display returns the human label for a color.
func (c Color) Display() string {
	switch c {
	case ColorSilver:
		return "Silver"
	case ColorGold:
		return "Gold"
	case ColorWhite:
		return "White"
	}
	return string(c)
}

// Display returns the human label for a mounting.
func (m Mounting) Display() string {
	if m == MountingPreDrilled {
		return "Pre-Drilled"
	}
	return "Self Adhesive"
}

// Family returns the CSS font family and weight for f.
func (f Font) Family() (family, weight string) {
	if f == FontArialBold {
		return "Arial", "bold"
	}
	return "Arial Black", "normal"
}

// =============================================================================
// Parsing
// =============================================================================

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}

// ParseColor parses a color name case-insensitively.
func ParseColor(s string) (Color, error) {
	c := Color(normalizeToken(s))
	switch c {
	case ColorSilver, ColorGold, ColorWhite:
		return c, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid color: %q (must be one of: silver, gold, white)", s)
}

// ParseSize parses a size name case-insensitively ("Baby Jesus" works).
func ParseSize(s string) (Size, error) {
	sz := Size(normalizeToken(s))
	if _, ok := sizeSpecs[sz]; ok {
		return sz, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid size: %q (must be one of: dracula, saville, dick, barzan, baby_jesus)", s)
}

// ParseMounting parses "Pre-Drilled", "pre_drilled", "Self-Adhesive" and friends.
func ParseMounting(s string) (Mounting, error) {
	m := Mounting(normalizeToken(s))
	switch m {
	case MountingSelfAdhesive, MountingPreDrilled:
		return m, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid mounting: %q (must be self_adhesive or pre_drilled)", s)
}

// ParseLayoutMode parses a single letter A-F.
func ParseLayoutMode(s string) (LayoutMode, error) {
	m := LayoutMode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range LayoutModes {
		if m == known {
			return m, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid layout mode: %q (must be A-F)", s)
}

// ParseQAStatus parses a review status.
func ParseQAStatus(s string) (QAStatus, error) {
	q := QAStatus(normalizeToken(s))
	switch q {
	case QAPending, QAApproved, QARejected:
		return q, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid qa status: %q (must be pending, approved or rejected)", s)
}

// =============================================================================
// Product
// =============================================================================

// TextLine is one line of sign text with its own scale factor.
type TextLine struct {
	Text  string  `json:"text" bson:"text"`
	Scale float64 `json:"scale,omitempty" bson:"scale,omitempty"`
}

// Product is a signage SKU.
type Product struct {
	ID          int64       `json:"id,omitempty" bson:"id"`
	MNumber     string      `json:"m_number" bson:"m_number"`
	Description string      `json:"description" bson:"description"`
	Color       Color       `json:"color" bson:"color"`
	Size        Size        `json:"size" bson:"size"`
	Orientation Orientation `json:"orientation" bson:"orientation"`
	Mounting    Mounting    `json:"mounting_type" bson:"mounting_type"`
	LayoutMode  LayoutMode  `json:"layout_mode" bson:"layout_mode"`
	Font        Font        `json:"font" bson:"font"`
	Icons       []string    `json:"icon_files" bson:"icon_files"`
	TextLines   []TextLine  `json:"text_lines" bson:"text_lines"`
	IconScale   float64     `json:"icon_scale" bson:"icon_scale"`
	TextScale   float64     `json:"text_scale" bson:"text_scale"`
	IconOffsetX float64     `json:"icon_offset_x" bson:"icon_offset_x"`
	IconOffsetY float64     `json:"icon_offset_y" bson:"icon_offset_y"`
	EAN         string      `json:"ean,omitempty" bson:"ean,omitempty"`
	QAStatus    QAStatus    `json:"qa_status" bson:"qa_status"`
	QAComment   string      `json:"qa_comment,omitempty" bson:"qa_comment,omitempty"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

// Normalize fills defaults for unset optional fields and canonicalizes
// enum spellings where they parse. It never fails; call Validate afterwards.
func (p *Product) Normalize() {
	p.MNumber = strings.TrimSpace(p.MNumber)
	if c, err := ParseColor(string(p.Color)); err == nil {
		p.Color = c
	}
	if s, err := ParseSize(string(p.Size)); err == nil {
		p.Size = s
	}
	if m, err := ParseMounting(string(p.Mounting)); err == nil {
		p.Mounting = m
	}
	if l, err := ParseLayoutMode(string(p.LayoutMode)); err == nil {
		p.LayoutMode = l
	}
	if p.Mounting == "" {
		p.Mounting = MountingSelfAdhesive
	}
	if p.LayoutMode == "" {
		p.LayoutMode = LayoutA
	}
	if p.Orientation == "" {
		p.Orientation = OrientationLandscape
	}
	if p.Font == "" {
		p.Font = FontArialHeavy
	}
	if p.QAStatus == "" {
		p.QAStatus = QAPending
	}
	if p.IconScale == 0 {
		p.IconScale = 1
	}
	if p.TextScale == 0 {
		p.TextScale = 1
	}
	icons := p.Icons[:0:0]
	for _, icon := range p.Icons {
		if icon = strings.TrimSpace(icon); icon != "" {
			icons = append(icons, icon)
		}
	}
	p.Icons = icons
	for i := range p.TextLines {
		if p.TextLines[i].Scale == 0 {
			p.TextLines[i].Scale = 1
		}
	}
}

// Validate checks shape constraints. Every failure is an INVALID_INPUT
// error so callers can fail fast before rendering.
func (p *Product) Validate() error {
	if err := errors.ValidateMNumber(p.MNumber); err != nil {
		return err
	}
	if _, err := ParseColor(string(p.Color)); err != nil {
		return err
	}
	if _, err := ParseSize(string(p.Size)); err != nil {
		return err
	}
	if _, err := ParseMounting(string(p.Mounting)); err != nil {
		return err
	}
	if _, err := ParseLayoutMode(string(p.LayoutMode)); err != nil {
		return err
	}
	switch p.Orientation {
	case OrientationLandscape:
	case OrientationPortrait:
		if p.Size != SizeBabyJesus {
			return errors.New(errors.ErrCodeInvalidInput, "portrait orientation is only available for baby_jesus, not %s", p.Size)
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid orientation: %q", p.Orientation)
	}
	switch p.Font {
	case FontArialHeavy, FontArialBold:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid font: %q", p.Font)
	}
	if _, err := ParseQAStatus(string(p.QAStatus)); err != nil {
		return err
	}
	if !positive(p.IconScale) {
		return errors.New(errors.ErrCodeInvalidInput, "icon_scale must be a positive number, got %g", p.IconScale)
	}
	if !positive(p.TextScale) {
		return errors.New(errors.ErrCodeInvalidInput, "text_scale must be a positive number, got %g", p.TextScale)
	}
	for i, line := range p.TextLines {
		if !positive(line.Scale) {
			return errors.New(errors.ErrCodeInvalidInput, "text line %d scale must be a positive number, got %g", i+1, line.Scale)
		}
	}
	if !finite(p.IconOffsetX) || !finite(p.IconOffsetY) {
		return errors.New(errors.ErrCodeInvalidInput, "icon offsets must be finite, got %g, %g", p.IconOffsetX, p.IconOffsetY)
	}
	for _, icon := range p.Icons {
		if err := errors.ValidateAssetName(icon); err != nil {
			return err
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }

// ActiveTextLines returns the lines with non-blank text, in order.
func (p *Product) ActiveTextLines() []TextLine {
	var out []TextLine
	for _, line := range p.TextLines {
		if strings.TrimSpace(line.Text) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate slices safely.
func (p *Product) Clone() *Product {
	c := *p
	c.Icons = append([]string(nil), p.Icons...)
	c.TextLines = append([]TextLine(nil), p.TextLines...)
	return &c
}

// FolderName is the staff folder label used in ZIP exports, e.g.
// "M1001 Pre-Drilled No Entry aluminium sign Silver Dracula".
func (p *Product) FolderName() string {
	return fmt.Sprintf("%s %s %s aluminium sign %s %s",
		p.MNumber, p.Mounting.Display(), p.Description, p.Color.Display(), p.Size.Spec().Display)
}
