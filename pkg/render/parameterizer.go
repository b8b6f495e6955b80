package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/northbynortheast/signmaker/pkg/bounds"
	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// OverlayID is the id of the group that holds every injected element.
const OverlayID = "signmaker-overlay"

// Options configures a Parameterizer. Zero fields take the embedded defaults.
type Options struct {
	Templates fs.FS
	Icons     fs.FS
	Registry  *bounds.Registry
	Layouts   *bounds.Table
	Logger    *log.Logger
}

// Parameterizer substitutes product data into SVG templates. It holds only
// immutable data and is safe for concurrent use.
type Parameterizer struct {
	templates fs.FS
	icons     fs.FS
	registry  *bounds.Registry
	layouts   *bounds.Table
	logger    *log.Logger
}

// New builds a Parameterizer, loading the embedded bounds tables when none
// are supplied.
func New(opts Options) (*Parameterizer, error) {
	p := &Parameterizer{
		templates: opts.Templates,
		icons:     opts.Icons,
		registry:  opts.Registry,
		layouts:   opts.Layouts,
		logger:    opts.Logger,
	}
	if p.templates == nil {
		p.templates = DefaultTemplates()
	}
	if p.icons == nil {
		p.icons = DefaultIcons()
	}
	if p.registry == nil {
		reg, err := bounds.Default()
		if err != nil {
			return nil, err
		}
		p.registry = reg
	}
	if p.layouts == nil {
		table, err := bounds.DefaultTable()
		if err != nil {
			return nil, err
		}
		p.layouts = table
	}
	if p.logger == nil {
		p.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return p, nil
}

// Icons returns the icon file system.
func (pz *Parameterizer) Icons() fs.FS { return pz.icons }

// Render produces the SVG for one marketplace image of p.
func (pz *Parameterizer) Render(ctx context.Context, p *product.Product, t ImageType) (Document, error) {
	if t == ImageMaster {
		return pz.MasterSVG(ctx, p)
	}
	if t.Code() == "" {
		return Document{}, errors.New(errors.ErrCodeInvalidImageType, "invalid image type: %q", t)
	}
	return pz.render(ctx, p, t, []ImageType{t}, fmt.Sprintf("%s - %s", p.MNumber, t.Code()))
}

// MasterSVG renders the print master, falling back to the main template
// when a size has no master template.
func (pz *Parameterizer) MasterSVG(ctx context.Context, p *product.Product) (Document, error) {
	return pz.render(ctx, p, ImageMaster, []ImageType{ImageMaster, ImageMain}, p.MNumber+" MASTER FILE")
}

// render fills the first template found among templateTypes.
func (pz *Parameterizer) render(ctx context.Context, in *product.Product, t ImageType, templateTypes []ImageType, name string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	p := in.Clone()
	p.Normalize()
	err := p.Validate()
	if err != nil {
		return Document{}, err
	}

	var tmpl []byte
	for _, tt := range templateTypes {
		_, tmpl, err = readTemplate(pz.templates, p.Color, p.Size, p.Orientation, tt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Document{}, err
	}

	it := InstructionType(t, p.Mounting)
	if t == ImageMaster {
		it = bounds.ForMounting(p.Mounting)
	}
	sign, err := pz.registry.ResolveOriented(p.Size, it, p.Orientation)
	if err != nil {
		return Document{}, err
	}
	layout, err := pz.layouts.Lookup(p.Size, p.LayoutMode)
	if err != nil {
		return Document{}, err
	}
	placed := layout.Place(sign)

	var overlay bytes.Buffer
	fmt.Fprintf(&overlay, `<g id="%s">`+"\n", OverlayID)
	if err := pz.writeIcons(&overlay, p, placed); err != nil {
		return Document{}, err
	}
	pz.writeText(&overlay, p, placed, name)
	overlay.WriteString("</g>\n")

	out, err := inject(tokenReplacer(p).Replace(string(tmpl)), overlay.String())
	if err != nil {
		return Document{}, errors.Wrap(errors.ErrCodeRender, err, "template for %s", name)
	}
	return parseDocument(name, []byte(out))
}

// inject places overlay immediately before the root's closing tag.
func inject(svg, overlay string) (string, error) {
	idx := strings.LastIndex(svg, "</svg>")
	if idx < 0 {
		return "", fmt.Errorf("no closing </svg> tag")
	}
	return svg[:idx] + overlay + svg[idx:], nil
}

// =============================================================================
// Icons
// =============================================================================

func (pz *Parameterizer) writeIcons(w *bytes.Buffer, p *product.Product, placed bounds.Placed) error {
	if len(p.Icons) == 0 {
		return nil
	}
	if placed.Icon == nil {
		pz.logger.Warn("layout has no icon region, icons dropped",
			"m_number", p.MNumber, "layout_mode", p.LayoutMode, "dropped", len(p.Icons))
		return nil
	}

	box := *placed.Icon
	cx, cy := box.Center()
	cellW := box.Width / float64(len(p.Icons))

	w.WriteString(`<g id="signmaker-icons">` + "\n")
	for i, name := range p.Icons {
		file, data, kind, err := resolveIcon(pz.icons, name)
		if err != nil {
			return err
		}
		iw, ih, err := intrinsicSize(data, kind)
		if err != nil {
			return errors.Wrap(errors.ErrCodeRender, err, "read size of icon %s", file)
		}

		cell := bounds.Rect{X: box.X + float64(i)*cellW, Y: box.Y, Width: cellW, Height: box.Height}
		ratio := min(cell.Width/iw, cell.Height/ih)
		fw, fh := iw*ratio, ih*ratio
		x := cell.X + (cell.Width-fw)/2
		y := cell.Y + (cell.Height-fh)/2

		// Scale about the icon box centre, then offset.
		s := p.IconScale
		x = cx + (x-cx)*s + p.IconOffsetX
		y = cy + (y-cy)*s + p.IconOffsetY
		fw, fh = fw*s, fh*s

		fmt.Fprintf(w, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid meet" href="data:%s;base64,%s"/>`+"\n",
			num(x), num(y), num(fw), num(fh), kind.mime(), base64.StdEncoding.EncodeToString(data))
	}
	w.WriteString("</g>\n")
	return nil
}

// =============================================================================
// Text
// =============================================================================

func (pz *Parameterizer) writeText(w *bytes.Buffer, p *product.Product, placed bounds.Placed, name string) {
	lines := p.ActiveTextLines()
	if len(lines) == 0 {
		return
	}
	if extra := len(lines) - len(placed.Text); extra > 0 {
		pz.logger.Warn("text lines exceed layout slots, extra lines dropped",
			"variant", name, "layout_mode", p.LayoutMode, "slots", len(placed.Text), "dropped", extra)
		lines = lines[:len(placed.Text)]
	}
	if len(lines) == 0 {
		return
	}

	family, weight := p.Font.Family()
	w.WriteString(`<g id="signmaker-text">` + "\n")
	for i, line := range lines {
		slot := placed.Text[i]
		size := FitFontSize(line.Text, slot) * p.TextScale * line.Scale
		cx, _ := slot.Center()
		fmt.Fprintf(w, `<text x="%s" y="%s" font-family="%s" font-weight="%s" font-size="%s" text-anchor="middle" fill="%s">%s</text>`+"\n",
			num(cx), num(slot.Y+slot.Height*baseline), family, weight, num(size), textFill, escapeText(line.Text))
	}
	w.WriteString("</g>\n")
}
