package bounds

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// Element names in the layout CSV.
const (
	ElementIcon  = "icon"
	textPrefix   = "text_"
	maxTextSlots = 3
)

// layoutRow is one CSV line. Coordinates are fractions of the inner area.
type layoutRow struct {
	Size    string  `csv:"size"`
	Mode    string  `csv:"layout_mode"`
	Element string  `csv:"element"`
	X       float64 `csv:"x"`
	Y       float64 `csv:"y"`
	Width   float64 `csv:"width"`
	Height  float64 `csv:"height"`
}

// Frac is a box expressed as fractions (0..1) of a containing rect.
type Frac struct {
	X, Y, Width, Height float64
}

// In maps f into the coordinate space of r.
func (f Frac) In(r Rect) Rect {
	return Rect{
		X:      r.X + f.X*r.Width,
		Y:      r.Y + f.Y*r.Height,
		Width:  f.Width * r.Width,
		Height: f.Height * r.Height,
	}
}

// Layout is the icon region and ordered text slots for one (size, mode).
type Layout struct {
	Size product.Size
	Mode product.LayoutMode
	Icon *Frac
	Text []Frac
}

// TextSlots is the number of text lines the layout can place.
func (l Layout) TextSlots() int { return len(l.Text) }

// HasIcon reports whether the layout reserves an icon region.
func (l Layout) HasIcon() bool { return l.Icon != nil }

// Placed is a Layout resolved into template millimetres.
type Placed struct {
	Inner Rect
	Icon  *Rect
	Text  []Rect
}

// Place maps the layout into the inner area of sign, inset by the size's
// padding.
func (l Layout) Place(sign Rect) Placed {
	inner := sign.Inset(l.Size.Padding())
	out := Placed{Inner: inner}
	if l.Icon != nil {
		r := l.Icon.In(inner)
		out.Icon = &r
	}
	for _, f := range l.Text {
		out.Text = append(out.Text, f.In(inner))
	}
	return out
}

type layoutKey struct {
	size product.Size
	mode product.LayoutMode
}

// Table is the immutable layout bounds table.
type Table struct {
	layouts map[layoutKey]Layout
}

// LoadTable reads layout_modes.csv from fsys.
func LoadTable(fsys fs.FS) (*Table, error) {
	data, err := fs.ReadFile(fsys, LayoutFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read %s", LayoutFile)
	}
	var rows []*layoutRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse %s", LayoutFile)
	}
	return buildTable(rows)
}

func buildTable(rows []*layoutRow) (*Table, error) {
	type slot struct {
		idx int
		f   Frac
	}
	texts := make(map[layoutKey][]slot)
	t := &Table{layouts: make(map[layoutKey]Layout)}

	for i, row := range rows {
		line := i + 2
		size, err := product.ParseSize(row.Size)
		if err != nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: unknown size %q", LayoutFile, line, row.Size)
		}
		mode, err := product.ParseLayoutMode(row.Mode)
		if err != nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: unknown layout mode %q", LayoutFile, line, row.Mode)
		}
		f := Frac{X: row.X, Y: row.Y, Width: row.Width, Height: row.Height}
		if err := checkFrac(f); err != nil {
			return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: %s %s: %v", LayoutFile, line, size, row.Element, err)
		}

		key := layoutKey{size, mode}
		l := t.layouts[key]
		l.Size, l.Mode = size, mode

		switch el := strings.ToLower(strings.TrimSpace(row.Element)); {
		case el == ElementIcon:
			if l.Icon != nil {
				return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: duplicate icon for %s/%s", LayoutFile, line, size, mode)
			}
			l.Icon = &f
		case strings.HasPrefix(el, textPrefix):
			var n int
			if _, err := fmt.Sscanf(el[len(textPrefix):], "%d", &n); err != nil || n < 1 || n > maxTextSlots {
				return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: bad text element %q", LayoutFile, line, row.Element)
			}
			texts[key] = append(texts[key], slot{n, f})
		default:
			return nil, errors.New(errors.ErrCodeConfiguration, "%s:%d: unknown element %q", LayoutFile, line, row.Element)
		}
		t.layouts[key] = l
	}

	for key, slots := range texts {
		sort.Slice(slots, func(i, j int) bool { return slots[i].idx < slots[j].idx })
		l := t.layouts[key]
		for i, s := range slots {
			if s.idx != i+1 {
				return nil, errors.New(errors.ErrCodeConfiguration, "%s: %s/%s text slots are not contiguous", LayoutFile, key.size, key.mode)
			}
			l.Text = append(l.Text, s.f)
		}
		t.layouts[key] = l
	}
	return t, nil
}

func checkFrac(f Frac) error {
	const eps = 1e-9
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("non-positive extent")
	case f.X < 0 || f.Y < 0:
		return fmt.Errorf("negative origin")
	case f.X+f.Width > 1+eps || f.Y+f.Height > 1+eps:
		return fmt.Errorf("extends past the inner area")
	}
	return nil
}

var (
	defaultTable     *Table
	defaultTableErr  error
	defaultTableOnce sync.Once
)

// DefaultTable returns the table built from the embedded data.
func DefaultTable() (*Table, error) {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = LoadTable(DefaultFS())
	})
	return defaultTable, defaultTableErr
}

// Lookup returns the layout for (size, mode). A missing pair is a
// configuration error: every shipped template expects its layout.
func (t *Table) Lookup(size product.Size, mode product.LayoutMode) (Layout, error) {
	l, ok := t.layouts[layoutKey{size, mode}]
	if !ok {
		return Layout{}, errors.New(errors.ErrCodeConfiguration, "no layout for size %s mode %s", size, mode)
	}
	return l, nil
}

// Layouts returns every layout ordered by size then mode.
func (t *Table) Layouts() []Layout {
	var out []Layout
	for _, size := range product.Sizes {
		for _, mode := range product.LayoutModes {
			if l, ok := t.layouts[layoutKey{size, mode}]; ok {
				out = append(out, l)
			}
		}
	}
	return out
}
