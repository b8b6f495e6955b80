package render

import (
	"embed"
	stderrors "errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

//go:embed templates/*.svg
var embeddedTemplates embed.FS

//go:embed icons
var embeddedIcons embed.FS

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() fs.FS { return mustSub(embeddedTemplates, "templates") }

// DefaultIcons returns the embedded icon set.
func DefaultIcons() fs.FS { return mustSub(embeddedIcons, "icons") }

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// =============================================================================
// Layered FS
// =============================================================================

type layered []fs.FS

// Layered returns a read-only fs.FS that opens a name from the first layer
// containing it. Nil layers are skipped. ReadDir merges the listings of
// every layer.
func Layered(layers ...fs.FS) fs.FS {
	var l layered
	for _, f := range layers {
		if f != nil {
			l = append(l, f)
		}
	}
	if len(l) == 1 {
		return l[0]
	}
	return l
}

func (l layered) Open(name string) (fs.File, error) {
	for _, f := range l {
		file, err := f.Open(name)
		if err == nil {
			return file, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (l layered) ReadDir(name string) ([]fs.DirEntry, error) {
	seen := make(map[string]fs.DirEntry)
	found := false
	for _, f := range l {
		entries, err := fs.ReadDir(f, name)
		if err != nil {
			continue
		}
		found = true
		for _, e := range entries {
			if _, ok := seen[e.Name()]; !ok {
				seen[e.Name()] = e
			}
		}
	}
	if !found {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]fs.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// =============================================================================
// Templates
// =============================================================================

// TemplateNames returns the candidate file names for a variant, most
// specific first.
func TemplateNames(c product.Color, s product.Size, o product.Orientation, t ImageType) []string {
	base := string(s)
	if o == product.OrientationPortrait {
		base += "_portrait"
	}
	base += "_" + string(t) + ".svg"
	return []string{string(c) + "_" + base, base}
}

func readTemplate(fsys fs.FS, c product.Color, s product.Size, o product.Orientation, t ImageType) (string, []byte, error) {
	names := TemplateNames(c, s, o, t)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err == nil {
			return name, data, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return "", nil, errors.Wrap(errors.ErrCodeAssetNotFound, err, "read template %s", name)
		}
	}
	return "", nil, errors.New(errors.ErrCodeAssetNotFound, "template not found: %s (also tried %s)", names[0], names[1])
}

// =============================================================================
// Icons
// =============================================================================

var iconExtensions = []string{".svg", ".png", ".SVG", ".PNG"}

// iconKind is the media type family of an icon file.
type iconKind int

const (
	iconSVG iconKind = iota
	iconPNG
)

func (k iconKind) mime() string {
	if k == iconPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// resolveIcon finds name in fsys, trying known extensions when the exact
// name is absent.
func resolveIcon(fsys fs.FS, name string) (string, []byte, iconKind, error) {
	if err := errors.ValidateAssetName(name); err != nil {
		return "", nil, 0, err
	}
	candidates := []string{name}
	for _, ext := range iconExtensions {
		candidates = append(candidates, name+ext)
	}
	for _, c := range candidates {
		data, err := fs.ReadFile(fsys, c)
		if err != nil {
			continue
		}
		kind, ok := kindOf(c)
		if !ok {
			return "", nil, 0, errors.New(errors.ErrCodeUnsupported, "icon %s: unsupported file type", c)
		}
		return c, data, kind, nil
	}
	return "", nil, 0, errors.New(errors.ErrCodeAssetNotFound, "icon not found: %s", name)
}

func kindOf(name string) (iconKind, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".svg":
		return iconSVG, true
	case ".png":
		return iconPNG, true
	}
	return 0, false
}

// ListIcons returns the icon file names in fsys, sorted.
func ListIcons(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssetNotFound, err, "list icons")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := kindOf(e.Name()); ok {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
