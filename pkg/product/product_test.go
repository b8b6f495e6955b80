package product

import (
	"math"
	"testing"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

func validProduct() *Product {
	return &Product{
		MNumber:     "M1001",
		Description: "No Entry",
		Color:       ColorSilver,
		Size:        SizeDracula,
		Mounting:    MountingPreDrilled,
		LayoutMode:  LayoutB,
		Icons:       []string{"no_entry.svg"},
		TextLines:   []TextLine{{Text: "NO ENTRY"}},
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    Size
		wantErr bool
	}{
		{"dracula", SizeDracula, false},
		{"Dracula", SizeDracula, false},
		{"BARZAN", SizeBarzan, false},
		{"Baby Jesus", SizeBabyJesus, false},
		{"baby-jesus", SizeBabyJesus, false},
		{"Baby_Jesus", SizeBabyJesus, false},
		{"huge", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseSize(%q) code = %v, want INVALID_INPUT", tt.input, errors.GetCode(err))
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseMounting(t *testing.T) {
	tests := []struct {
		input string
		want  Mounting
	}{
		{"Pre-Drilled", MountingPreDrilled},
		{"pre_drilled", MountingPreDrilled},
		{"Self-Adhesive", MountingSelfAdhesive},
		{"self adhesive", MountingSelfAdhesive},
	}
	for _, tt := range tests {
		got, err := ParseMounting(tt.input)
		if err != nil {
			t.Errorf("ParseMounting(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMounting(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := ParseMounting("glued"); err == nil {
		t.Error("ParseMounting(glued) should fail")
	}
}

func TestParseColorAndLayout(t *testing.T) {
	if c, err := ParseColor("Gold"); err != nil || c != ColorGold {
		t.Errorf("ParseColor(Gold) = %v, %v", c, err)
	}
	if _, err := ParseColor("bronze"); err == nil {
		t.Error("ParseColor(bronze) should fail")
	}
	if m, err := ParseLayoutMode("d"); err != nil || m != LayoutD {
		t.Errorf("ParseLayoutMode(d) = %v, %v", m, err)
	}
	if _, err := ParseLayoutMode("G"); err == nil {
		t.Error("ParseLayoutMode(G) should fail")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p := &Product{
		MNumber:   " M1002 ",
		Color:     "Gold",
		Size:      "Saville",
		Icons:     []string{"arrow.svg", " ", ""},
		TextLines: []TextLine{{Text: "EXIT"}},
	}
	p.Normalize()

	if p.MNumber != "M1002" {
		t.Errorf("MNumber = %q, want %q", p.MNumber, "M1002")
	}
	if p.Color != ColorGold || p.Size != SizeSaville {
		t.Errorf("Color/Size = %v/%v, want gold/saville", p.Color, p.Size)
	}
	if p.Mounting != MountingSelfAdhesive {
		t.Errorf("Mounting = %v, want %v", p.Mounting, MountingSelfAdhesive)
	}
	if p.LayoutMode != LayoutA || p.Orientation != OrientationLandscape || p.Font != FontArialHeavy {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.IconScale != 1 || p.TextScale != 1 || p.TextLines[0].Scale != 1 {
		t.Errorf("scales = %v/%v/%v, want 1", p.IconScale, p.TextScale, p.TextLines[0].Scale)
	}
	if len(p.Icons) != 1 {
		t.Errorf("Icons = %v, want blank entries removed", p.Icons)
	}
	if p.QAStatus != QAPending {
		t.Errorf("QAStatus = %v, want pending", p.QAStatus)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Product)
		ok     bool
	}{
		{"valid", func(p *Product) {}, true},
		{"empty m number", func(p *Product) { p.MNumber = "" }, false},
		{"bad m number", func(p *Product) { p.MNumber = "X12" }, false},
		{"unknown color", func(p *Product) { p.Color = "bronze" }, false},
		{"unknown size", func(p *Product) { p.Size = "huge" }, false},
		{"portrait dracula", func(p *Product) { p.Orientation = OrientationPortrait }, false},
		{"portrait baby jesus", func(p *Product) {
			p.Size = SizeBabyJesus
			p.Orientation = OrientationPortrait
		}, true},
		{"negative icon scale", func(p *Product) { p.IconScale = -1 }, false},
		{"negative text scale", func(p *Product) { p.TextScale = -0.5 }, false},
		{"negative line scale", func(p *Product) { p.TextLines[0].Scale = -2 }, false},
		{"icon path", func(p *Product) { p.Icons = []string{"../secret.svg"} }, false},
		{"nan icon scale", func(p *Product) { p.IconScale = math.NaN() }, false},
		{"infinite icon scale", func(p *Product) { p.IconScale = math.Inf(1) }, false},
		{"nan text scale", func(p *Product) { p.TextScale = math.NaN() }, false},
		{"nan line scale", func(p *Product) { p.TextLines[0].Scale = math.NaN() }, false},
		{"infinite offset x", func(p *Product) { p.IconOffsetX = math.Inf(1) }, false},
		{"nan offset y", func(p *Product) { p.IconOffsetY = math.NaN() }, false},
		{"negative offsets", func(p *Product) { p.IconOffsetX, p.IconOffsetY = -5, -3.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			p.Normalize()
			tt.mutate(p)
			err := p.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("Validate() code = %v, want a validation code", errors.GetCode(err))
			}
		})
	}
}

func TestActiveTextLines(t *testing.T) {
	p := &Product{TextLines: []TextLine{{Text: "A"}, {Text: "  "}, {Text: "B"}}}
	got := p.ActiveTextLines()
	if len(got) != 2 || got[0].Text != "A" || got[1].Text != "B" {
		t.Errorf("ActiveTextLines() = %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := validProduct()
	c := p.Clone()
	c.Icons[0] = "changed.svg"
	c.TextLines[0].Text = "changed"
	if p.Icons[0] != "no_entry.svg" || p.TextLines[0].Text != "NO ENTRY" {
		t.Error("Clone shares slices with the original")
	}
}

func TestFolderName(t *testing.T) {
	p := validProduct()
	want := "M1001 Pre-Drilled No Entry aluminium sign Silver Dracula"
	if got := p.FolderName(); got != want {
		t.Errorf("FolderName() = %q, want %q", got, want)
	}
}

func TestSizeSpecs(t *testing.T) {
	for _, s := range Sizes {
		spec := s.Spec()
		if spec.WidthMM <= 0 || spec.HeightMM <= 0 || spec.Code == "" {
			t.Errorf("%s: incomplete spec %+v", s, spec)
		}
	}
	if SizeDracula.Padding() != 4 || SizeBarzan.Padding() != 3 {
		t.Errorf("Padding = %v/%v, want 4/3", SizeDracula.Padding(), SizeBarzan.Padding())
	}
	if got := SizeSaville.DisplayCM(); got != "11 x 9.5 cm" {
		t.Errorf("DisplayCM() = %q", got)
	}
}

func TestPatchApply(t *testing.T) {
	p := validProduct()
	p.Normalize()

	scale := 1.5
	comment := "icon too small"
	status := QARejected
	if err := (Patch{IconScale: &scale, QAStatus: &status, QAComment: &comment}).Apply(p); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.IconScale != 1.5 || p.QAStatus != QARejected || p.QAComment != comment {
		t.Errorf("patch fields not applied: %+v", p)
	}
	if p.TextScale != 1 || p.Description != "No Entry" {
		t.Errorf("untouched fields changed: %+v", p)
	}

	bad := -1.0
	if err := (Patch{TextScale: &bad}).Apply(p); err == nil {
		t.Fatal("Apply with negative scale should fail")
	}
	if p.TextScale != 1 {
		t.Errorf("failed Apply mutated product: TextScale = %v", p.TextScale)
	}

	if !(Patch{}).Empty() {
		t.Error("zero Patch should be Empty")
	}
}
