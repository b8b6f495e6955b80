package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io/fs"
	"math"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbynortheast/signmaker/pkg/cache"
	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
	"github.com/northbynortheast/signmaker/pkg/render/raster"
)

// fakeRasterizer encodes a blank PNG the size of the document canvas.
type fakeRasterizer struct {
	calls atomic.Int32
	block bool
	err   error
}

func (f *fakeRasterizer) Scale() float64 { return 2 }

func (f *fakeRasterizer) Rasterize(ctx context.Context, doc render.Document) (raster.PixelImage, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return raster.PixelImage{}, ctx.Err()
	}
	if f.err != nil {
		return raster.PixelImage{}, f.err
	}
	w := int(math.Ceil(doc.Width * f.Scale()))
	h := int(math.Ceil(doc.Height * f.Scale()))
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		return raster.PixelImage{}, err
	}
	box := raster.Box{Width: doc.Width, Height: doc.Height}
	return raster.PixelImage{Data: buf.Bytes(), Width: w, Height: h, ContentBox: box}, nil
}

func sample() *product.Product {
	return &product.Product{
		MNumber:     "M1001",
		Description: "No Entry",
		Size:        product.SizeDracula,
		Color:       product.ColorSilver,
		Mounting:    product.MountingSelfAdhesive,
		LayoutMode:  product.LayoutA,
		Icons:       []string{"no_entry"},
	}
}

func newRunner(t *testing.T, templates fs.FS, rz Rasterizer, c cache.Cache) *Runner {
	t.Helper()
	pz, err := render.New(render.Options{Templates: templates})
	require.NoError(t, err)
	return NewRunner(pz, rz, c, nil, nil)
}

func TestGenerateAll(t *testing.T) {
	rz := &fakeRasterizer{}
	r := newRunner(t, nil, rz, nil)

	results := r.GenerateAll(context.Background(), sample())
	require.Len(t, results, 4)

	for i, want := range []string{"001", "002", "003", "004"} {
		res := results[i]
		assert.Equal(t, want, res.Key.Code())
		assert.NoError(t, res.Err, "variant %s", res.Key.Name())
		assert.Greater(t, res.Image.Width, 0)
		assert.Equal(t, "M1001 - "+want, res.SVG.Name)
	}
	assert.Equal(t, int32(4), rz.calls.Load())
	assert.Empty(t, Failed(results))
}

func TestGenerateAllMissingTemplateIsolated(t *testing.T) {
	// Only the dimensions template is missing: 002 fails, the rest succeed.
	templates := fstest.MapFS{}
	err := fs.WalkDir(render.DefaultTemplates(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path == "dracula_dimensions.svg" {
			return err
		}
		data, err := fs.ReadFile(render.DefaultTemplates(), path)
		templates[path] = &fstest.MapFile{Data: data}
		return err
	})
	require.NoError(t, err)

	r := newRunner(t, templates, &fakeRasterizer{}, nil)
	results := r.GenerateAll(context.Background(), sample())
	require.Len(t, results, 4)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "002", failed[0].Key.Code())
	assert.True(t, errors.Is(failed[0].Err, errors.ErrCodeAssetNotFound), "err = %v", failed[0].Err)
	assert.Nil(t, failed[0].Image.Data)

	for _, i := range []int{0, 2, 3} {
		assert.NoError(t, results[i].Err)
		assert.NotEmpty(t, results[i].Image.Data)
	}
}

func TestGenerateAllInvalidProduct(t *testing.T) {
	rz := &fakeRasterizer{}
	r := newRunner(t, nil, rz, nil)

	p := sample()
	p.Size = "enormous"
	results := r.GenerateAll(context.Background(), p)
	require.Len(t, results, 4)
	for _, res := range results {
		assert.True(t, errors.Is(res.Err, errors.ErrCodeInvalidInput), "err = %v", res.Err)
	}
	assert.Equal(t, int32(0), rz.calls.Load(), "no render should be attempted")
}

func TestGenerateAllIdempotent(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	rz := &fakeRasterizer{}
	r := newRunner(t, nil, rz, c)

	first := r.GenerateAll(context.Background(), sample())
	second := r.GenerateAll(context.Background(), sample())

	assert.Equal(t, int32(4), rz.calls.Load(), "second run should be served from cache")
	for i := range first {
		require.NoError(t, second[i].Err)
		assert.True(t, second[i].CacheHit)
		assert.Equal(t, first[i].Image.Data, second[i].Image.Data, "variant %s differs", first[i].Key.Name())
		assert.Equal(t, first[i].Image.Width, second[i].Image.Width)
		assert.NotZero(t, first[i].Image.ContentBox)
		assert.Zero(t, second[i].Image.ContentBox, "cache hits carry no content box")
	}

	// A product change invalidates the main image.
	changed := sample()
	changed.IconScale = 1.5
	third := r.GenerateAll(context.Background(), changed)
	assert.False(t, third[0].CacheHit)
}

func TestGenerateAllCancelled(t *testing.T) {
	r := newRunner(t, nil, &fakeRasterizer{block: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []Result)
	go func() { done <- r.GenerateAll(ctx, sample()) }()
	cancel()

	for _, res := range <-done {
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Nil(t, res.Image.Data)
	}
}

func TestGenerateAllRasterError(t *testing.T) {
	boom := errors.New(errors.ErrCodeRenderTimeout, "page hung")
	r := newRunner(t, nil, &fakeRasterizer{err: boom}, nil)

	results := r.GenerateAll(context.Background(), sample())
	assert.Len(t, Failed(results), 4)
	for _, res := range results {
		assert.True(t, errors.Is(res.Err, errors.ErrCodeRenderTimeout))
	}
}

func TestRenderSingle(t *testing.T) {
	r := newRunner(t, nil, &fakeRasterizer{}, nil)
	res := r.Render(context.Background(), sample(), render.ImagePeelAndStick)
	require.NoError(t, res.Err)
	assert.Equal(t, "003", res.Key.Code())
	assert.Equal(t, "M1001 - 003.png", res.Key.FileName())
}

func TestNoRasterizer(t *testing.T) {
	r := newRunner(t, nil, nil, nil)
	res := r.Render(context.Background(), sample(), render.ImageMain)
	assert.True(t, errors.Is(res.Err, errors.ErrCodeConfiguration))
}

func TestNaming(t *testing.T) {
	if got := FileName("M1001", "001"); got != "M1001 - 001.png" {
		t.Errorf("FileName = %q, want %q", got, "M1001 - 001.png")
	}
	tests := []struct {
		base string
		want string
	}{
		{"https://cdn.example.com", "https://cdn.example.com/M1001%20-%20001.png"},
		{"https://cdn.example.com/", "https://cdn.example.com/M1001%20-%20001.png"},
		{"https://pub.r2.dev/signs", "https://pub.r2.dev/signs/M1001%20-%20001.png"},
	}
	for _, tt := range tests {
		if got := PublicURL(tt.base, "M1001", "001"); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestImageTypes(t *testing.T) {
	types := ImageTypes()
	types[0] = "mutated"
	if ImageTypes()[0] != render.ImageMain {
		t.Error("ImageTypes should return a copy")
	}

	for _, in := range []string{"001", "main", "004", "rear"} {
		if _, err := ParseImageType(in); err != nil {
			t.Errorf("ParseImageType(%q) = %v", in, err)
		}
	}
	for _, in := range []string{"005", "006", "lifestyle", ""} {
		if _, err := ParseImageType(in); !errors.Is(err, errors.ErrCodeInvalidImageType) {
			t.Errorf("ParseImageType(%q) = %v, want INVALID_IMAGE_TYPE", in, err)
		}
	}
}
