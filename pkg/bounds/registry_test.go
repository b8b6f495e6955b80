package bounds

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

func TestDefaultRegistryResolve(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	tests := []struct {
		size product.Size
		it   InstructionType
		want Rect
	}{
		{product.SizeSaville, SelfAdhesive, Rect{X: 30, Y: 24, Width: 93, Height: 73}},
		{product.SizeDick, PreDrilled, Rect{X: 25, Y: 30, Width: 110, Height: 60}},
		{product.SizeBarzan, PeelAndStick, Rect{X: 25, Y: 25, Width: 164, Height: 113}},
		{product.SizeDracula, SelfAdhesive, Rect{X: 37, Y: 27, Width: 85, Height: 85}},
		{product.SizeDracula, PeelAndStick, Rect{X: 22, Y: 30, Width: 60, Height: 60}},
		{product.SizeBabyJesus, PreDrilled, Rect{X: 25, Y: 25, Width: 240, Height: 140}},
	}

	for _, tt := range tests {
		got, err := reg.Resolve(tt.size, tt.it)
		if err != nil {
			t.Errorf("Resolve(%s, %s) error: %v", tt.size, tt.it, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Resolve(%s, %s) mismatch (-want +got):\n%s", tt.size, tt.it, diff)
		}
	}
}

func TestResolvePositiveForEveryPair(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, size := range product.Sizes {
		for _, it := range []InstructionType{SelfAdhesive, PreDrilled, PeelAndStick} {
			r, err := reg.Resolve(size, it)
			if err != nil {
				t.Errorf("Resolve(%s, %s) error: %v", size, it, err)
				continue
			}
			if r.Width <= 0 || r.Height <= 0 {
				t.Errorf("Resolve(%s, %s) = %v, want positive extent", size, it, r)
			}
		}
	}
}

func TestOverrideOnlyForDraculaPeelAndStick(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, size := range product.Sizes {
		main, _ := reg.Resolve(size, SelfAdhesive)
		peel, _ := reg.Resolve(size, PeelAndStick)
		differs := main != peel
		if want := size == product.SizeDracula; differs != want {
			t.Errorf("%s: peel_and_stick differs from main = %v, want %v", size, differs, want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Resolve("huge", SelfAdhesive); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("unknown size: error = %v, want CONFIGURATION_ERROR", err)
	}
	if _, err := reg.Resolve(product.SizeDick, "glued"); !errors.IsValidation(err) {
		t.Errorf("unknown instruction type: error = %v, want validation error", err)
	}
}

func TestResolveOriented(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	land, _ := reg.ResolveOriented(product.SizeBabyJesus, SelfAdhesive, product.OrientationLandscape)
	port, _ := reg.ResolveOriented(product.SizeBabyJesus, SelfAdhesive, product.OrientationPortrait)

	if port.Width != land.Height || port.Height != land.Width {
		t.Errorf("portrait = %v, want swapped extent of %v", port, land)
	}
	if port.X != land.X || port.Y != land.Y {
		t.Errorf("portrait origin = (%v, %v), want (%v, %v)", port.X, port.Y, land.X, land.Y)
	}
}

func TestRectPortrait(t *testing.T) {
	tests := []struct {
		in, want Rect
	}{
		{Rect{X: 10, Y: 20, Width: 30, Height: 40}, Rect{X: 10, Y: 20, Width: 40, Height: 30}},
		{Rect{X: 25, Y: 25, Width: 240, Height: 140}, Rect{X: 25, Y: 25, Width: 140, Height: 240}},
		{Rect{Width: 5, Height: 5}, Rect{Width: 5, Height: 5}},
	}
	for _, tt := range tests {
		if got := tt.in.Portrait(); got != tt.want {
			t.Errorf("%v.Portrait() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadValidation(t *testing.T) {
	full := `
[main.saville]
x = 1
y = 1
width = 10
height = 10
[main.dick]
x = 1
y = 1
width = 10
height = 10
[main.barzan]
x = 1
y = 1
width = 10
height = 10
[main.dracula]
x = 1
y = 1
width = 10
height = 10
[main.baby_jesus]
x = 1
y = 1
width = 10
height = 10
`
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"complete", full, false},
		{"missing size", "[main.saville]\nx = 1\ny = 1\nwidth = 2\nheight = 2\n", true},
		{"zero width", full + "[override.dick.pre_drilled]\nx = 0\ny = 0\nwidth = 0\nheight = 4\n", true},
		{"unknown type", full + "[override.dick.glued]\nx = 0\ny = 0\nwidth = 4\nheight = 4\n", true},
		{"malformed", "[main.saville\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{RegistryFile: {Data: []byte(tt.data)}}
			_, err := Load(fsys)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Errorf("Load() code = %v, want CONFIGURATION_ERROR", errors.GetCode(err))
			}
		})
	}

	if _, err := Load(fstest.MapFS{}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("missing file: error = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestEntries(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	entries := reg.Entries()
	if len(entries) != len(product.Sizes)+1 {
		t.Fatalf("Entries() len = %d, want %d", len(entries), len(product.Sizes)+1)
	}
	last := entries[len(entries)-1]
	if last.Size != product.SizeDracula || last.InstructionType != PeelAndStick {
		t.Errorf("last entry = %+v, want the dracula override", last)
	}
}

func TestForMounting(t *testing.T) {
	if ForMounting(product.MountingPreDrilled) != PreDrilled {
		t.Error("pre_drilled should map to PreDrilled")
	}
	if ForMounting(product.MountingSelfAdhesive) != SelfAdhesive {
		t.Error("self_adhesive should map to SelfAdhesive")
	}
}
