// Package bounds holds the static geometry the SVG parameterizer needs:
// where the sign sits inside each template ([Registry]) and how a layout
// mode divides that area into icon and text regions ([Table]).
//
// Both tables ship embedded in the binary and are loaded once at startup.
// Malformed or incomplete data is a CONFIGURATION_ERROR; callers should
// treat it as fatal rather than attempt a render.
//
// # Resolution
//
// The registry answers "where is the sign in this template" for a size and
// an instruction type (self_adhesive, pre_drilled or peel_and_stick). An
// exact override wins, then the per-size main entry:
//
//	reg, _ := bounds.Default()
//	rect, err := reg.Resolve(product.SizeDracula, bounds.PeelAndStick)
//	// rect == Rect{X: 22, Y: 30, Width: 60, Height: 60}
package bounds

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// File names looked up in a bounds directory.
const (
	RegistryFile = "bounds.toml"
	LayoutFile   = "layout_modes.csv"
)

//go:embed data/bounds.toml data/layout_modes.csv
var embedded embed.FS

// DefaultFS returns the embedded bounds data.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// =============================================================================
// Instruction Types
// =============================================================================

// InstructionType selects which variant of a template's geometry applies.
type InstructionType string

const (
	SelfAdhesive InstructionType = "self_adhesive"
	PreDrilled   InstructionType = "pre_drilled"
	PeelAndStick InstructionType = "peel_and_stick"
)

// ParseInstructionType rejects anything outside the three known types.
func ParseInstructionType(s string) (InstructionType, error) {
	switch it := InstructionType(s); it {
	case SelfAdhesive, PreDrilled, PeelAndStick:
		return it, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid instruction type: %q", s)
}

// ForMounting maps a product mounting to its instruction type.
func ForMounting(m product.Mounting) InstructionType {
	if m == product.MountingPreDrilled {
		return PreDrilled
	}
	return SelfAdhesive
}

// =============================================================================
// Rect
// =============================================================================

// Rect is an axis-aligned box in template millimetres.
type Rect struct {
	X        float64 `toml:"x"`
	Y        float64 `toml:"y"`
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	Rotation float64 `toml:"rotation,omitempty"` // degrees, about the anchor
	Anchor   string  `toml:"anchor,omitempty"`   // "center" when empty
}

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Inset shrinks r by d on every side. The result never has negative extent.
func (r Rect) Inset(d float64) Rect {
	out := r
	out.X += d
	out.Y += d
	out.Width = max(0, r.Width-2*d)
	out.Height = max(0, r.Height-2*d)
	return out
}

// Portrait swaps Width and Height. The origin stays where it is.
func (r Rect) Portrait() Rect {
	out := r
	out.Width, out.Height = r.Height, r.Width
	return out
}

func (r Rect) valid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g, %g, %g x %g)", r.X, r.Y, r.Width, r.Height)
}

// =============================================================================
// Registry
// =============================================================================

type registryFile struct {
	Main     map[string]Rect            `toml:"main"`
	Override map[string]map[string]Rect `toml:"override"`
}

type overrideKey struct {
	size product.Size
	it   InstructionType
}

// Registry is the immutable template bounds table.
type Registry struct {
	main     map[product.Size]Rect
	override map[overrideKey]Rect
}

// Entry is one registry row, for display.
type Entry struct {
	Size            product.Size
	InstructionType InstructionType // empty for main entries
	Rect            Rect
}

// Load reads bounds.toml from fsys and validates it.
func Load(fsys fs.FS) (*Registry, error) {
	data, err := fs.ReadFile(fsys, RegistryFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read %s", RegistryFile)
	}
	var raw registryFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse %s", RegistryFile)
	}

	reg := &Registry{
		main:     make(map[product.Size]Rect, len(raw.Main)),
		override: make(map[overrideKey]Rect),
	}
	for name, r := range raw.Main {
		size, err := product.ParseSize(name)
		if err != nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s: unknown size %q in [main]", RegistryFile, name)
		}
		if !r.valid() {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s: main.%s has non-positive extent %s", RegistryFile, name, r)
		}
		reg.main[size] = r
	}
	for name, byType := range raw.Override {
		size, err := product.ParseSize(name)
		if err != nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s: unknown size %q in [override]", RegistryFile, name)
		}
		for typ, r := range byType {
			it, err := ParseInstructionType(typ)
			if err != nil {
				return nil, errors.New(errors.ErrCodeConfiguration, "%s: unknown instruction type %q for %s", RegistryFile, typ, name)
			}
			if !r.valid() {
				return nil, errors.New(errors.ErrCodeConfiguration, "%s: override.%s.%s has non-positive extent %s", RegistryFile, name, typ, r)
			}
			reg.override[overrideKey{size, it}] = r
		}
	}
	for _, size := range product.Sizes {
		if _, ok := reg.main[size]; !ok {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s: no main entry for size %s", RegistryFile, size)
		}
	}
	return reg, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// Default returns the registry built from the embedded data.
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Load(DefaultFS())
	})
	return defaultRegistry, defaultRegistryErr
}

// Resolve returns the sign bounds for a size and instruction type.
func (r *Registry) Resolve(size product.Size, it InstructionType) (Rect, error) {
	if _, err := ParseInstructionType(string(it)); err != nil {
		return Rect{}, err
	}
	if rect, ok := r.override[overrideKey{size, it}]; ok {
		return rect, nil
	}
	if rect, ok := r.main[size]; ok {
		return rect, nil
	}
	return Rect{}, errors.New(errors.ErrCodeConfiguration, "no template bounds for size %q", size)
}

// ResolveOriented is Resolve with width and height swapped for portrait.
func (r *Registry) ResolveOriented(size product.Size, it InstructionType, o product.Orientation) (Rect, error) {
	rect, err := r.Resolve(size, it)
	if err != nil || o != product.OrientationPortrait {
		return rect, err
	}
	return rect.Portrait(), nil
}

// Entries lists main entries in catalogue order followed by overrides.
func (r *Registry) Entries() []Entry {
	var out []Entry
	for _, size := range product.Sizes {
		if rect, ok := r.main[size]; ok {
			out = append(out, Entry{Size: size, Rect: rect})
		}
	}
	var overrides []Entry
	for k, rect := range r.override {
		overrides = append(overrides, Entry{Size: k.size, InstructionType: k.it, Rect: rect})
	}
	sort.Slice(overrides, func(i, j int) bool {
		if overrides[i].Size != overrides[j].Size {
			return overrides[i].Size < overrides[j].Size
		}
		return overrides[i].InstructionType < overrides[j].InstructionType
	})
	return append(out, overrides...)
}
