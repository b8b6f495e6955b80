package render

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/charmbracelet/log"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

const testTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="153mm" height="121mm" viewBox="0 0 153 121">
<rect x="30" y="24" width="93" height="73" fill="{{SIGN_FILL}}" stroke="{{SIGN_STROKE}}"/>
<title>{{M_NUMBER}} {{COLOR_NAME}} {{FINISH}} {{SIZE_LABEL}}</title>
</svg>
`

const squareIcon = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><rect width="100" height="100"/></svg>`

func testProduct() *product.Product {
	return &product.Product{
		MNumber:     "M1001",
		Description: "Exit",
		Color:       product.ColorSilver,
		Size:        product.SizeSaville,
		Mounting:    product.MountingSelfAdhesive,
		LayoutMode:  product.LayoutA,
		Icons:       []string{"square.svg"},
	}
}

func testParameterizer(t *testing.T, templates fstest.MapFS, logger *log.Logger) *Parameterizer {
	t.Helper()
	if templates == nil {
		templates = fstest.MapFS{}
		for _, typ := range append(MarketplaceTypes, ImageMaster) {
			templates["saville_"+string(typ)+".svg"] = &fstest.MapFile{Data: []byte(testTemplate)}
		}
	}
	icons := fstest.MapFS{
		"square.svg": {Data: []byte(squareIcon)},
		"wide.SVG":   {Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="50"></svg>`)},
	}
	p, err := New(Options{Templates: templates, Icons: icons, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

var imageRe = regexp.MustCompile(`<image x="([^"]+)" y="([^"]+)" width="([^"]+)" height="([^"]+)"`)

func TestRenderDeterministic(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	ctx := context.Background()
	p := testProduct()
	p.LayoutMode = product.LayoutB
	p.TextLines = []product.TextLine{{Text: "FIRE EXIT"}, {Text: "KEEP CLEAR"}}

	a, err := pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(a.Bytes, b.Bytes) {
		t.Error("Render output differs between identical calls")
	}
}

func TestRenderTokens(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	doc, err := pz.Render(context.Background(), testProduct(), ImageMain)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	svg := string(doc.Bytes)
	for _, want := range []string{`fill="#C0C0C0"`, `stroke="#8A8A8A"`, "M1001 Silver Brushed Silver 110mm x 95mm"} {
		if !strings.Contains(svg, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(svg, "{{") {
		t.Error("output still contains unreplaced tokens")
	}
	if doc.Name != "M1001 - 001" {
		t.Errorf("Name = %q, want %q", doc.Name, "M1001 - 001")
	}
	if doc.Width != 153 || doc.Height != 121 || doc.Units != "mm" {
		t.Errorf("canvas = %v x %v %s, want 153 x 121 mm", doc.Width, doc.Height, doc.Units)
	}
	if doc.ViewBox != (ViewBox{0, 0, 153, 121}) {
		t.Errorf("ViewBox = %v", doc.ViewBox)
	}
}

func TestOverlayInsertedBeforeClosingTag(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	doc, err := pz.Render(context.Background(), testProduct(), ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(doc.Bytes)
	overlay := strings.Index(svg, `<g id="`+OverlayID+`">`)
	closing := strings.LastIndex(svg, "</svg>")
	title := strings.Index(svg, "<title>")
	if overlay < 0 || overlay < title || overlay > closing {
		t.Errorf("overlay at %d, template content at %d, closing tag at %d", overlay, title, closing)
	}
}

func TestTemplateSelection(t *testing.T) {
	templates := fstest.MapFS{
		"saville_main.svg":      {Data: []byte(strings.Replace(testTemplate, "<title>", "<title>generic ", 1))},
		"gold_saville_main.svg": {Data: []byte(strings.Replace(testTemplate, "<title>", "<title>gold-specific ", 1))},
	}
	pz := testParameterizer(t, templates, nil)
	ctx := context.Background()

	p := testProduct()
	p.Color = product.ColorGold
	doc, err := pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc.Bytes), "gold-specific") {
		t.Error("gold product did not use the color-specific template")
	}

	p.Color = product.ColorWhite
	doc, err = pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc.Bytes), "generic") {
		t.Error("white product did not fall back to the generic template")
	}

	_, err = pz.Render(ctx, p, ImageRear)
	if !errors.Is(err, errors.ErrCodeAssetNotFound) {
		t.Errorf("missing template error = %v, want ASSET_NOT_FOUND", err)
	}
}

func TestMissingIcon(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	p := testProduct()
	p.Icons = []string{"nonexistent_icon.svg"}
	_, err := pz.Render(context.Background(), p, ImageMain)
	if !errors.Is(err, errors.ErrCodeAssetNotFound) {
		t.Fatalf("error = %v, want ASSET_NOT_FOUND", err)
	}
	if !strings.Contains(err.Error(), "nonexistent_icon.svg") {
		t.Errorf("error %q does not name the missing file", err)
	}
}

func TestIconExtensionResolution(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	p := testProduct()
	p.Icons = []string{"square", "wide"}
	doc, err := pz.Render(context.Background(), p, ImageMain)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n := len(imageRe.FindAllString(string(doc.Bytes), -1)); n != 2 {
		t.Errorf("got %d <image> elements, want 2", n)
	}
}

func TestIconComposition(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	ctx := context.Background()

	// Saville mode A: inner area (33, 27, 87 x 67), icon box 70% centred.
	tests := []struct {
		name          string
		scale, dx, dy float64
		x, y, w, h    string
	}{
		{"base", 1, 0, 0, "53.050", "37.050", "46.900", "46.900"},
		{"scaled then offset", 2, 5, -3, "34.600", "10.600", "93.800", "93.800"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct()
			p.IconScale, p.IconOffsetX, p.IconOffsetY = tt.scale, tt.dx, tt.dy
			doc, err := pz.Render(ctx, p, ImageMain)
			if err != nil {
				t.Fatal(err)
			}
			m := imageRe.FindStringSubmatch(string(doc.Bytes))
			if m == nil {
				t.Fatal("no <image> element in output")
			}
			if m[1] != tt.x || m[2] != tt.y || m[3] != tt.w || m[4] != tt.h {
				t.Errorf("image = (%s, %s, %s x %s), want (%s, %s, %s x %s)", m[1], m[2], m[3], m[4], tt.x, tt.y, tt.w, tt.h)
			}
		})
	}
}

func TestTextPlacement(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	p := testProduct()
	p.LayoutMode = product.LayoutB
	p.TextLines = []product.TextLine{{Text: "EXIT"}}

	doc, err := pz.Render(context.Background(), p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	want := `<text x="76.500" y="73.900" font-family="Arial Black" font-weight="normal" font-size="8.576" text-anchor="middle"`
	if !strings.Contains(string(doc.Bytes), want) {
		t.Errorf("output missing %s\n%s", want, doc.Bytes)
	}

	p.TextScale = 0.5
	p.TextLines[0].Scale = 2
	doc, err = pz.Render(context.Background(), p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc.Bytes), `font-size="8.576"`) {
		t.Error("text scale and line scale should multiply")
	}
}

func TestTextEscaped(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	p := testProduct()
	p.LayoutMode = product.LayoutF
	p.Icons = nil
	p.TextLines = []product.TextLine{{Text: "<B&Q>"}}
	doc, err := pz.Render(context.Background(), p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc.Bytes), "&lt;B&amp;Q&gt;") {
		t.Error("text was not XML-escaped")
	}
}

func TestExcessTextLinesDropped(t *testing.T) {
	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.WarnLevel})
	pz := testParameterizer(t, nil, logger)

	p := testProduct()
	p.LayoutMode = product.LayoutB
	p.TextLines = []product.TextLine{{Text: "ONE"}, {Text: "TWO"}, {Text: "THREE"}, {Text: "FOUR"}}
	doc, err := pz.Render(context.Background(), p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(doc.Bytes), "<text "); n != 3 {
		t.Errorf("got %d text elements, want 3", n)
	}
	if strings.Contains(string(doc.Bytes), "FOUR") {
		t.Error("fourth line should have been dropped")
	}
	if !strings.Contains(logs.String(), "dropped=1") {
		t.Errorf("expected a warning naming the dropped count, got %q", logs.String())
	}
}

func TestMasterFallsBackToMain(t *testing.T) {
	templates := fstest.MapFS{"saville_main.svg": {Data: []byte(testTemplate)}}
	pz := testParameterizer(t, templates, nil)
	doc, err := pz.MasterSVG(context.Background(), testProduct())
	if err != nil {
		t.Fatalf("MasterSVG: %v", err)
	}
	if doc.Name != "M1001 MASTER FILE" {
		t.Errorf("Name = %q", doc.Name)
	}
}

func TestRenderRejectsInvalidProduct(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	p := testProduct()
	p.Size = "huge"
	if _, err := pz.Render(context.Background(), p, ImageMain); !errors.IsValidation(err) {
		t.Errorf("error = %v, want a validation error", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	pz := testParameterizer(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pz.Render(ctx, testProduct(), ImageMain); err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDefaultAssetsRenderEverySize(t *testing.T) {
	pz, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, size := range product.Sizes {
		for _, typ := range MarketplaceTypes {
			p := testProduct()
			p.Size = size
			p.Icons = []string{"no_entry"}
			p.LayoutMode = product.LayoutB
			p.TextLines = []product.TextLine{{Text: "NO ENTRY"}}
			if _, err := pz.Render(ctx, p, typ); err != nil {
				t.Errorf("Render(%s, %s): %v", size, typ, err)
			}
		}
		p := testProduct()
		p.Size = size
		p.Icons = []string{"info_dot.png"}
		if _, err := pz.MasterSVG(ctx, p); err != nil {
			t.Errorf("MasterSVG(%s): %v", size, err)
		}
	}

	p := testProduct()
	p.Size = product.SizeBabyJesus
	p.Orientation = product.OrientationPortrait
	p.Icons = nil
	doc, err := pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatalf("portrait render: %v", err)
	}
	if doc.Width >= doc.Height {
		t.Errorf("portrait canvas = %v x %v, want taller than wide", doc.Width, doc.Height)
	}
}

var textYRe = regexp.MustCompile(`<text x="[^"]+" y="([^"]+)"`)

// iconBox returns the first <image> rectangle in svg.
func iconBox(t *testing.T, svg []byte) (x, y, w, h float64) {
	t.Helper()
	m := imageRe.FindSubmatch(svg)
	if m == nil {
		t.Fatal("no <image> element in output")
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(string(m[i+1]), 64)
		if err != nil {
			t.Fatalf("image attribute %q: %v", m[i+1], err)
		}
		v[i] = f
	}
	return v[0], v[1], v[2], v[3]
}

func within(x, y, w, h, rx, ry, rw, rh float64) bool {
	const eps = 1e-3
	return x >= rx-eps && y >= ry-eps && x+w <= rx+rw+eps && y+h <= ry+rh+eps
}

func TestDraculaPreDrilledScenario(t *testing.T) {
	pz, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	p := &product.Product{
		MNumber:     "M1001",
		Description: "No Entry",
		Size:        product.SizeDracula,
		Color:       product.ColorSilver,
		Mounting:    product.MountingPreDrilled,
		LayoutMode:  product.LayoutB,
		Icons:       []string{"no_entry"},
		TextLines:   []product.TextLine{{Text: "NO ENTRY"}, {Text: "STAFF ONLY"}},
	}
	ctx := context.Background()

	// Main bounds (37, 27, 85 x 85) less the 4mm circular padding.
	main, err := pz.Render(ctx, p, ImageMain)
	if err != nil {
		t.Fatal(err)
	}
	x, y, w, h := iconBox(t, main.Bytes)
	if !within(x, y, w, h, 41, 31, 77, 77) {
		t.Errorf("main icon (%g, %g, %g x %g) outside the padded main bounds", x, y, w, h)
	}
	if within(x, y, w, h, 22, 30, 60, 60) {
		t.Errorf("main icon (%g, %g, %g x %g) placed in the peel-and-stick bounds", x, y, w, h)
	}

	ys := textYRe.FindAllSubmatch(main.Bytes, -1)
	if len(ys) != 2 {
		t.Fatalf("got %d <text> elements, want 2", len(ys))
	}
	y1, _ := strconv.ParseFloat(string(ys[0][1]), 64)
	y2, _ := strconv.ParseFloat(string(ys[1][1]), 64)
	if y1 >= y2 {
		t.Errorf("text baselines y = %g, %g, want increasing", y1, y2)
	}

	// Peel-and-stick uses the override (22, 30, 60 x 60).
	peel, err := pz.Render(ctx, p, ImagePeelAndStick)
	if err != nil {
		t.Fatal(err)
	}
	x, y, w, h = iconBox(t, peel.Bytes)
	if !within(x, y, w, h, 26, 34, 52, 52) {
		t.Errorf("peel-and-stick icon (%g, %g, %g x %g) outside the padded override bounds", x, y, w, h)
	}
}

func TestParseImageType(t *testing.T) {
	tests := []struct {
		input   string
		want    ImageType
		wantErr bool
	}{
		{"main", ImageMain, false},
		{"001", ImageMain, false},
		{"002", ImageDimensions, false},
		{"peel_and_stick", ImagePeelAndStick, false},
		{"004", ImageRear, false},
		{"005", "", true},
		{"006", "", true},
		{"lifestyle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseImageType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseImageType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidImageType) {
			t.Errorf("ParseImageType(%q) code = %v", tt.input, errors.GetCode(err))
		}
		if got != tt.want {
			t.Errorf("ParseImageType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIntrinsicSize(t *testing.T) {
	tests := []struct {
		name string
		data string
		w, h float64
	}{
		{"viewBox", `<svg viewBox="0 0 120 104"/>`, 120, 104},
		{"width height", `<svg width="80mm" height="40mm"/>`, 80, 40},
		{"none", `<svg/>`, 100, 100},
	}
	for _, tt := range tests {
		w, h, err := intrinsicSize([]byte(tt.data), iconSVG)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("%s: size = %v x %v, want %v x %v", tt.name, w, h, tt.w, tt.h)
		}
	}

	png, err := DefaultIcons().Open("info_dot.png")
	if err != nil {
		t.Fatal(err)
	}
	defer png.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(png); err != nil {
		t.Fatal(err)
	}
	w, h, err := intrinsicSize(buf.Bytes(), iconPNG)
	if err != nil || w != 32 || h != 32 {
		t.Errorf("png size = %v x %v (%v), want 32 x 32", w, h, err)
	}
}

func TestLayered(t *testing.T) {
	top := fstest.MapFS{"a.svg": {Data: []byte("top")}}
	bottom := fstest.MapFS{"a.svg": {Data: []byte("bottom")}, "b.svg": {Data: []byte("bottom")}}
	fsys := Layered(top, nil, bottom)

	icons, err := ListIcons(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(icons, ",") != "a.svg,b.svg" {
		t.Errorf("ListIcons = %v", icons)
	}
	_, data, _, err := resolveIcon(fsys, "a")
	if err != nil || string(data) != "top" {
		t.Errorf("resolveIcon(a) = %q, %v; want the top layer", data, err)
	}
}
