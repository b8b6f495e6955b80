package render

import (
	"strings"

	"github.com/northbynortheast/signmaker/pkg/product"
)

// Finish is the color-dependent look of a sign.
type Finish struct {
	Name   string // e.g. "Brushed Silver"
	Fill   string
	Stroke string
}

var finishes = map[product.Color]Finish{
	product.ColorSilver: {Name: "Brushed Silver", Fill: "#C0C0C0", Stroke: "#8A8A8A"},
	product.ColorGold:   {Name: "Brushed Gold", Fill: "#D4AF37", Stroke: "#A8862B"},
	product.ColorWhite:  {Name: "Gloss White", Fill: "#FFFFFF", Stroke: "#B0B0B0"},
}

// FinishFor returns the finish for c, defaulting to silver.
func FinishFor(c product.Color) Finish {
	if f, ok := finishes[c]; ok {
		return f
	}
	return finishes[product.ColorSilver]
}

const material = "Aluminium"

// tokenReplacer builds the substitutions for a product's template tokens.
// Values are XML-escaped; descriptions and M Numbers are user input.
func tokenReplacer(p *product.Product) *strings.Replacer {
	f := FinishFor(p.Color)
	return strings.NewReplacer(
		"{{COLOR}}", escapeText(string(p.Color)),
		"{{COLOR_NAME}}", escapeText(p.Color.Display()),
		"{{FINISH}}", escapeText(f.Name),
		"{{SIGN_FILL}}", f.Fill,
		"{{SIGN_STROKE}}", f.Stroke,
		"{{MATERIAL}}", material,
		"{{M_NUMBER}}", escapeText(p.MNumber),
		"{{SIZE_LABEL}}", escapeText(p.Size.DisplayMM()),
	)
}
