package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
	"github.com/northbynortheast/signmaker/pkg/render/raster"
)

func products() []*product.Product {
	return []*product.Product{
		{MNumber: "M1001", Description: "No Entry", Size: product.SizeDracula, Color: product.ColorSilver, Mounting: product.MountingSelfAdhesive, EAN: "5012345678900"},
		{MNumber: "M1002", Description: "No Entry", Size: product.SizeSaville, Color: product.ColorGold, Mounting: product.MountingPreDrilled},
		{MNumber: "M1003", Description: "Staff Only", Size: product.SizeBarzan, Color: product.ColorWhite, Mounting: product.MountingSelfAdhesive},
	}
}

func transparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// fakeGenerator fails every variant listed in fail.
type fakeGenerator struct {
	t    *testing.T
	fail map[string]bool
}

func (g fakeGenerator) GenerateAll(_ context.Context, p *product.Product) []pipeline.Result {
	var out []pipeline.Result
	for _, it := range pipeline.ImageTypes() {
		res := pipeline.Result{Key: pipeline.KeyFor(p, it)}
		if g.fail[res.Key.Name()] {
			res.Err = errors.New(errors.ErrCodeAssetNotFound, "icon not found: x")
		} else {
			res.Image = raster.PixelImage{Data: transparentPNG(g.t, 8, 4), Width: 8, Height: 4}
		}
		out = append(out, res)
	}
	return out
}

func (g fakeGenerator) Master(_ context.Context, p *product.Product) (render.Document, error) {
	return render.Document{Name: p.MNumber + " MASTER FILE", Bytes: []byte("<svg/>")}, nil
}

func TestParentSKU(t *testing.T) {
	tests := []struct {
		theme string
		want  string
	}{
		{"No Entry", "NO_ENTRY_PARENT"},
		{"Staff-Only Area!", "STAFF_ONLY_AREA_PARENT"},
		{"Fire Exit_PARENT", "FIRE_EXIT_PARENT"},
		{"Café & Bar", "CAF__BAR_PARENT"},
	}
	for _, tt := range tests {
		if got := ParentSKU(tt.theme); got != tt.want {
			t.Errorf("ParentSKU(%q) = %q, want %q", tt.theme, got, tt.want)
		}
	}
}

func TestWriteAmazon(t *testing.T) {
	var buf bytes.Buffer
	err := WriteAmazon(&buf, products(), AmazonRequest{UseCases: "offices, car parks"}, Options{PublicURL: "https://cdn.example.com"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(AmazonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4+len(products()))

	cell := func(row int, attr string) string {
		t.Helper()
		name, err := excelize.CoordinatesToCellName(AmazonColumn(attr), row)
		require.NoError(t, err)
		v, err := f.GetCellValue(AmazonSheet, name)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Main Image URL", cell(2, "main_image_url"))
	assert.Equal(t, "main_image_url", cell(3, "main_image_url"))

	assert.Equal(t, "NO_ENTRY_PARENT", cell(4, "item_sku"))
	assert.Equal(t, "Parent", cell(4, "parent_child"))
	assert.Empty(t, cell(4, "main_image_url"))

	assert.Equal(t, "M1001", cell(5, "item_sku"))
	assert.Equal(t, "https://cdn.example.com/M1001%20-%20001.png", cell(5, "main_image_url"))
	assert.Equal(t, "https://cdn.example.com/M1001%20-%20004.png", cell(5, "other_image_url3"))
	assert.Equal(t, "NO_ENTRY_PARENT", cell(5, "parent_sku"))
	assert.Equal(t, "EAN", cell(5, "external_product_id_type"))
	assert.Equal(t, "Silver_XS", cell(5, "style_name"))
	assert.Equal(t, "10.99", cell(5, "list_price_with_tax"))
	assert.Contains(t, cell(5, "product_description"), "offices, car parks")

	assert.Empty(t, cell(6, "external_product_id_type"))
	assert.Contains(t, cell(6, "bullet_point3"), "Pre-drilled")
}

func TestWriteAmazonNoProducts(t *testing.T) {
	err := WriteAmazon(io.Discard, nil, AmazonRequest{}, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestGroupByDescription(t *testing.T) {
	groups := GroupByDescription(products())
	require.Len(t, groups, 2)
	assert.Equal(t, "No Entry", groups[0].Description)
	assert.Equal(t, "M1001", groups[0].ParentSKU)
	assert.Len(t, groups[0].Products, 2)
	assert.Equal(t, "M1003", groups[1].ParentSKU)
}

func TestWriteEtsy(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEtsy(&buf, products(), Options{PublicURL: "https://cdn.example.com"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(EtsySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, etsyColumns[:3], rows[0][:3])
	assert.Equal(t, []string{"", "M1001", "M1002"}, rows[2][:3])
	assert.Equal(t, "https://cdn.example.com/M1002%20-%20001.png", rows[2][12])
	assert.Equal(t, "M1003", rows[3][1])
}

func TestWriteEbay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEbay(&buf, products(), Options{PublicURL: "https://cdn.example.com"}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	assert.Equal(t, "Action(SiteID=UK)", header[0])
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	first := records[1]
	assert.Equal(t, "Add", first[col["Action(SiteID=UK)"]])
	assert.Equal(t, "10.99", first[col["StartPrice"]])
	assert.Equal(t, "9.5 x 9.5 cm", first[col["*C:Size"]])
	assert.Contains(t, first[col["PicURL"]], "M1001%20-%20001.png|")
	assert.LessOrEqual(t, len([]rune(first[col["Title"]])), 80)
}

func zipEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = b
	}
	return out
}

func TestWriteImagesZip(t *testing.T) {
	var buf bytes.Buffer
	gen := fakeGenerator{t: t, fail: map[string]bool{"M1001 - 002": true}}
	sum, err := WriteImagesZip(context.Background(), &buf, gen, products()[0])
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Images)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "ASSET_NOT_FOUND", sum.Failures[0].Code)

	entries := zipEntries(t, buf.Bytes())
	var names []string
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ERRORS.txt", "M1001 - 001.png", "M1001 - 003.png", "M1001 - 004.png"}, names)
	assert.Contains(t, string(entries["ERRORS.txt"]), "M1001 - 002")
}

func TestWriteFolders(t *testing.T) {
	var buf bytes.Buffer
	gen := fakeGenerator{t: t}
	ps := products()[:1]
	sum, err := WriteFolders(context.Background(), &buf, gen, ps, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Products)
	assert.Equal(t, 4, sum.Images)
	assert.Empty(t, sum.Failures)

	root := "M1001 Self Adhesive No Entry aluminium sign Silver Dracula/"
	entries := zipEntries(t, buf.Bytes())
	for _, name := range []string{
		root + "001 Design/001 MASTER FILE/M1001 MASTER FILE.svg",
		root + "001 Design/002 MUTOH/",
		root + "001 Design/003 MIMAKI/",
		root + "003 Blanks/",
		root + "002 Images/M1001 - 001.png",
		root + "002 Images/M1001 - 001.jpg",
		root + "002 Images/M1001 - 004.jpg",
	} {
		assert.Contains(t, entries, name)
	}
	assert.NotContains(t, entries, ErrorsFile)
	assert.Equal(t, "<svg/>", string(entries[root+"001 Design/001 MASTER FILE/M1001 MASTER FILE.svg"]))
}

func TestArchiveEntryNames(t *testing.T) {
	tests := []struct {
		name    string
		dir     bool
		wantErr bool
	}{
		{"M1001 No Entry/002 Images/M1001 - 001.png", false, false},
		{"M1001 No Entry/003 Blanks/", true, false},
		{"../M1001 - 001.png", false, true},
		{"/etc/M1001.png", false, true},
		{"M1001/./001.png", false, true},
		{"M1001/../..", true, true},
		{"M1001\\001.png", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zw := zip.NewWriter(io.Discard)
			defer zw.Close()
			var err error
			if tt.dir {
				err = addDir(zw, tt.name)
			} else {
				err = addFile(zw, tt.name, []byte("x"))
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidPath) {
					t.Errorf("entry %q error = %v, want INVALID_PATH", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Errorf("entry %q error = %v", tt.name, err)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	if got := SafeName(" Entry/Exit: Left "); got != "Entry-Exit- Left" {
		t.Errorf("SafeName = %q", got)
	}
}

func TestToJPEGFlattensOntoWhite(t *testing.T) {
	data, err := ToJPEG(transparentPNG(t, 4, 4))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Greater(t, r>>8, uint32(250))
	assert.Greater(t, g>>8, uint32(250))
	assert.Greater(t, b>>8, uint32(250))
}

func TestThumbnail(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	src.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := Thumbnail(buf.Bytes(), 100)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	same, err := Thumbnail(buf.Bytes(), 1000)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), same)
}
