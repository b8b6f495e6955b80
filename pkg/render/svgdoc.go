package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// ViewBox is an SVG viewBox.
type ViewBox struct {
	MinX, MinY, Width, Height float64
}

func (v ViewBox) String() string {
	return fmt.Sprintf("%s %s %s %s", num(v.MinX), num(v.MinY), num(v.Width), num(v.Height))
}

// Document is a parameterized SVG ready for rasterization.
type Document struct {
	Name    string  // variant label, e.g. "M1001 - 001"
	Width   float64 // declared canvas width, in the root element's units
	Height  float64 // declared canvas height
	Units   string  // unit suffix of width/height ("mm", "px", "")
	ViewBox ViewBox
	Bytes   []byte
}

type svgRoot struct {
	width, height string
	viewBox       string
}

// readRoot returns the attributes of the outermost <svg> element.
func readRoot(data []byte) (svgRoot, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return svgRoot{}, fmt.Errorf("no <svg> root element")
		}
		if err != nil {
			return svgRoot{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return svgRoot{}, fmt.Errorf("root element is <%s>, want <svg>", start.Name.Local)
		}
		var root svgRoot
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "width":
				root.width = a.Value
			case "height":
				root.height = a.Value
			case "viewBox":
				root.viewBox = a.Value
			}
		}
		return root, nil
	}
}

func parseViewBox(s string) (ViewBox, bool) {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(f) != 4 {
		return ViewBox{}, false
	}
	var v [4]float64
	for i, part := range f {
		x, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return ViewBox{}, false
		}
		v[i] = x
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, false
	}
	return ViewBox{v[0], v[1], v[2], v[3]}, true
}

// parseLength splits "110mm" into (110, "mm"). Percentages are rejected.
func parseLength(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, "", false
	}
	i := len(s)
	for i > 0 && (s[i-1] < '0' || s[i-1] > '9') && s[i-1] != '.' {
		i--
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || v <= 0 {
		return 0, "", false
	}
	return v, s[i:], true
}

// parseDocument fills the canvas fields of a Document from its bytes.
func parseDocument(name string, data []byte) (Document, error) {
	root, err := readRoot(data)
	if err != nil {
		return Document{}, errors.Wrap(errors.ErrCodeRender, err, "parse %s", name)
	}
	doc := Document{Name: name, Bytes: data}
	vb, hasVB := parseViewBox(root.viewBox)
	w, wu, hasW := parseLength(root.width)
	h, _, hasH := parseLength(root.height)

	switch {
	case hasW && hasH:
		doc.Width, doc.Height, doc.Units = w, h, wu
	case hasVB:
		doc.Width, doc.Height = vb.Width, vb.Height
	default:
		return Document{}, errors.New(errors.ErrCodeRender, "%s: root <svg> declares neither width/height nor viewBox", name)
	}
	if hasVB {
		doc.ViewBox = vb
	} else {
		doc.ViewBox = ViewBox{Width: doc.Width, Height: doc.Height}
	}
	return doc, nil
}

// intrinsicSize returns an icon's natural aspect box. SVG icons without a
// usable size are treated as square.
func intrinsicSize(data []byte, kind iconKind) (float64, float64, error) {
	if kind == iconPNG {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0, err
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			return 0, 0, fmt.Errorf("empty image")
		}
		return float64(cfg.Width), float64(cfg.Height), nil
	}

	root, err := readRoot(data)
	if err != nil {
		return 0, 0, err
	}
	if vb, ok := parseViewBox(root.viewBox); ok {
		return vb.Width, vb.Height, nil
	}
	w, _, okW := parseLength(root.width)
	h, _, okH := parseLength(root.height)
	if okW && okH {
		return w, h, nil
	}
	return 100, 100, nil
}
