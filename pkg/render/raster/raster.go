// Package raster converts parameterized SVG documents to PNG with a shared
// headless Chromium driven by go-rod.
//
// Each call gets its own incognito context and page, released on every exit
// path. Rendering happens in two phases: the first loads the SVG with
// overflow visible and measures the true content box (which may extend past
// the declared canvas, e.g. dimension labels); the second shifts the content
// to the origin, sizes the viewport to the box and captures a screenshot.
package raster

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/render"
)

// Defaults.
const (
	DefaultScale    = 4.0
	DefaultTimeout  = 20 * time.Second
	DefaultMaxPages = 4

	MinTimeout = 10 * time.Second
	MaxTimeout = 30 * time.Second
)

// Options configures a Rasterizer.
type Options struct {
	// Bin is the Chromium executable. Empty lets the launcher find or
	// download one.
	Bin string

	// ControlURL connects to an already running browser instead of
	// launching one.
	ControlURL string

	// Scale is the device scale factor (pixels per CSS pixel).
	Scale float64

	// Timeout bounds a single Rasterize call.
	Timeout time.Duration

	// MaxPages caps concurrently open pages.
	MaxPages int

	Logger *log.Logger
}

// ValidateAndSetDefaults fills zero values and rejects out-of-range ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < 0 || o.Scale > 10 {
		return errors.New(errors.ErrCodeConfiguration, "render scale must be in (0, 10], got %g", o.Scale)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Timeout < MinTimeout || o.Timeout > MaxTimeout {
		return errors.New(errors.ErrCodeConfiguration, "render timeout must be between %s and %s, got %s", MinTimeout, MaxTimeout, o.Timeout)
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Box is a rectangle in CSS pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelImage is a rasterized document.
type PixelImage struct {
	Data       []byte // PNG
	Width      int    // pixels
	Height     int    // pixels
	ContentBox Box    // measured content box before translation, CSS pixels; zero when served from cache
}

// Rasterizer owns one lazily started browser shared by all calls. It is
// safe for concurrent use.
type Rasterizer struct {
	opts Options
	sem  chan struct{}

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// New validates opts. The browser starts on first use.
func New(opts Options) (*Rasterizer, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Rasterizer{
		opts: opts,
		sem:  make(chan struct{}, opts.MaxPages),
	}, nil
}

// Available reports whether a local Chromium can be found.
func Available() bool {
	_, ok := launcher.LookPath()
	return ok
}

// Scale returns the configured device scale factor.
func (r *Rasterizer) Scale() float64 { return r.opts.Scale }

func (r *Rasterizer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("rasterizer closed")
	}
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if r.opts.Bin != "" {
			l = l.Bin(r.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		r.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	r.opts.Logger.Debug("browser connected", "control_url", controlURL)
	r.browser = browser
	return browser, nil
}

// Close shuts down the browser and cleans up the launcher's profile.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}

// Rasterize renders doc to PNG. A deadline yields RENDER_TIMEOUT, a browser
// or script fault RENDER_ERROR. Cancellation of ctx itself is returned as
// ctx.Err() so callers can tell it apart.
func (r *Rasterizer) Rasterize(ctx context.Context, doc render.Document) (PixelImage, error) {
	tctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-tctx.Done():
		return PixelImage{}, r.classify(ctx, tctx, tctx.Err(), doc)
	}

	img, err := r.rasterize(tctx, doc)
	if err != nil {
		return PixelImage{}, r.classify(ctx, tctx, err, doc)
	}
	return img, nil
}

func (r *Rasterizer) classify(parent, tctx context.Context, err error, doc render.Document) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if tctx.Err() == context.DeadlineExceeded || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeRenderTimeout, err, "rasterize %s exceeded %s", doc.Name, r.opts.Timeout)
	}
	return errors.Wrap(errors.ErrCodeRender, err, "rasterize %s", doc.Name)
}

func (r *Rasterizer) rasterize(ctx context.Context, doc render.Document) (PixelImage, error) {
	browser, err := r.connect()
	if err != nil {
		return PixelImage{}, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return PixelImage{}, fmt.Errorf("incognito context: %w", err)
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return PixelImage{}, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx)

	alpha := 0.0
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{A: &alpha},
	}).Call(p); err != nil {
		return PixelImage{}, fmt.Errorf("transparent background: %w", err)
	}

	if err := p.SetDocumentContent(hostDocument(doc.Bytes)); err != nil {
		return PixelImage{}, fmt.Errorf("load svg: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return PixelImage{}, fmt.Errorf("wait for load: %w", err)
	}
	// Embedded icons and fonts must be ready before anything is measured.
	if err := evalInto(p, nil, settleJS); err != nil {
		return PixelImage{}, fmt.Errorf("wait for resources: %w", err)
	}

	// Phase 1: measure.
	var box Box
	if err := evalInto(p, &box, measureJS); err != nil {
		return PixelImage{}, fmt.Errorf("measure content: %w", err)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return PixelImage{}, fmt.Errorf("empty content box %+v", box)
	}

	// Phase 2: shift content to the origin and capture.
	if err := evalInto(p, nil, translateJS, -box.X, -box.Y); err != nil {
		return PixelImage{}, fmt.Errorf("translate content: %w", err)
	}
	w, h := math.Ceil(box.Width), math.Ceil(box.Height)
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             int(w),
		Height:            int(h),
		DeviceScaleFactor: r.opts.Scale,
	}).Call(p); err != nil {
		return PixelImage{}, fmt.Errorf("set viewport: %w", err)
	}

	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip:   &proto.PageViewport{X: 0, Y: 0, Width: w, Height: h, Scale: 1},
	})
	if err != nil {
		return PixelImage{}, fmt.Errorf("screenshot: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PixelImage{}, fmt.Errorf("decode screenshot: %w", err)
	}

	r.opts.Logger.Debug("rasterized", "name", doc.Name, "box", box, "width", cfg.Width, "height", cfg.Height)
	return PixelImage{Data: data, Width: cfg.Width, Height: cfg.Height, ContentBox: box}, nil
}

func evalInto(p *rod.Page, out any, js string, args ...any) error {
	res, err := p.Evaluate(&rod.EvalOptions{JS: js, JSArgs: args, ByValue: true, AwaitPromise: true})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

var xmlProlog = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)

// hostDocument wraps an SVG in a bare HTML page with no margins.
func hostDocument(svg []byte) string {
	body := xmlProlog.ReplaceAll(svg, nil)
	return `<!DOCTYPE html><html><head><meta charset="utf-8"><style>` +
		`html,body{margin:0;padding:0;background:transparent;overflow:visible}` +
		`svg{display:block;overflow:visible;position:absolute;left:0;top:0}` +
		`</style></head><body>` + string(body) + `</body></html>`
}

// settleJS resolves once web fonts are loaded and every SVG <image> has
// decoded or failed.
const settleJS = `async () => {
	if (document.fonts) await document.fonts.ready;
	const pending = [];
	for (const el of document.querySelectorAll('image, img')) {
		const href = el.getAttribute('href') || el.getAttribute('xlink:href') || el.getAttribute('src');
		if (!href) continue;
		const img = new Image();
		img.src = href;
		pending.push(img.decode());
	}
	await Promise.allSettled(pending);
	return true;
}`

// measureJS returns the union of the root's box and every rendered
// descendant's box, in page coordinates.
const measureJS = `() => {
	const svg = document.querySelector('svg');
	if (!svg) throw new Error('no svg element');
	svg.style.overflow = 'visible';
	const r = svg.getBoundingClientRect();
	let minX = r.left, minY = r.top, maxX = r.right, maxY = r.bottom;
	for (const el of svg.querySelectorAll('*')) {
		if (el.closest('defs, title, desc, metadata')) continue;
		const b = el.getBoundingClientRect();
		if (b.width === 0 && b.height === 0) continue;
		minX = Math.min(minX, b.left);
		minY = Math.min(minY, b.top);
		maxX = Math.max(maxX, b.right);
		maxY = Math.max(maxY, b.bottom);
	}
	return {x: minX, y: minY, width: maxX - minX, height: maxY - minY};
}`

const translateJS = `(dx, dy) => {
	const svg = document.querySelector('svg');
	svg.style.left = dx + 'px';
	svg.style.top = dy + 'px';
	return true;
}`
