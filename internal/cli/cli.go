// Package cli implements the signmaker command-line interface.
package cli

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/pkg/bounds"
	"github.com/northbynortheast/signmaker/pkg/buildinfo"
	"github.com/northbynortheast/signmaker/pkg/cache"
	"github.com/northbynortheast/signmaker/pkg/config"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
	"github.com/northbynortheast/signmaker/pkg/render/raster"
	"github.com/northbynortheast/signmaker/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "signmaker"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag.
	ConfigPath string

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "SignMaker renders product images for aluminium signs",
		Long:         `SignMaker fills SVG sign templates with product data, rasterizes the four marketplace images per product and exports listing files for Amazon, Etsy and eBay.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $SIGNMAKER_CONFIG or ~/.config/signmaker/config.toml)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.productsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.boundsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "summary", cfg.String())
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Factories
// =============================================================================

// openStore opens the configured product database.
func (c *CLI) openStore(ctx context.Context) (product.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	switch cfg.Database.Driver {
	case "mongo":
		return product.OpenMongo(ctx, cfg.Database.URI, cfg.Database.Name)
	default:
		return product.OpenSQLite(cfg.Database.Path)
	}
}

// newCache opens the configured raster cache. noCache forces a null cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	default:
		return cache.NewFileCache(cacheDir(cfg))
	}
}

func cacheDir(cfg *config.Config) string {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	return cache.DefaultDir()
}

// overlay layers a user directory over an embedded asset tree.
func overlay(dir string, embedded fs.FS) fs.FS {
	if dir == "" {
		return embedded
	}
	return render.Layered(os.DirFS(dir), embedded)
}

// newParameterizer builds the SVG parameterizer with any asset overrides.
func (c *CLI) newParameterizer() (*render.Parameterizer, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	opts := render.Options{
		Templates: overlay(cfg.Assets.TemplatesDir, render.DefaultTemplates()),
		Icons:     overlay(cfg.Assets.IconsDir, render.DefaultIcons()),
		Logger:    c.Logger,
	}
	if opts.Registry, opts.Layouts, err = loadBounds(cfg.Assets.BoundsDir); err != nil {
		return nil, err
	}
	return render.New(opts)
}

// loadBounds reads the bounds registry and layout table, with files in dir
// taking precedence over the embedded ones.
func loadBounds(dir string) (*bounds.Registry, *bounds.Table, error) {
	fsys := overlay(dir, bounds.DefaultFS())
	reg, err := bounds.Load(fsys)
	if err != nil {
		return nil, nil, err
	}
	table, err := bounds.LoadTable(fsys)
	if err != nil {
		return nil, nil, err
	}
	return reg, table, nil
}

// engine bundles the pieces a rendering command needs.
type engine struct {
	store      product.Store
	runner     *pipeline.Runner
	rasterizer *raster.Rasterizer
}

// openEngine opens the store and builds a runner with a lazily started
// browser.
func (c *CLI) openEngine(ctx context.Context, noCache bool) (*engine, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	pz, err := c.newParameterizer()
	if err != nil {
		return nil, err
	}
	rz, err := raster.New(raster.Options{
		Bin:        cfg.Render.ChromeBin,
		ControlURL: cfg.Render.ControlURL,
		Scale:      cfg.Render.Scale,
		Timeout:    cfg.Render.Timeout.Duration,
		MaxPages:   cfg.Render.MaxPages,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx)
	if err != nil {
		ch.Close()
		return nil, err
	}

	runner := pipeline.NewRunner(pz, rz, ch, nil, c.Logger)
	runner.Concurrency = cfg.Render.Concurrency
	return &engine{store: store, runner: runner, rasterizer: rz}, nil
}

// Close releases the browser, cache and store.
func (e *engine) Close() {
	_ = e.rasterizer.Close()
	_ = e.runner.Close()
	_ = e.store.Close()
}

// newUploader connects to R2, or returns nil when no credentials are set.
func (c *CLI) newUploader(ctx context.Context) (*storage.R2, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if !cfg.StorageConfigured() {
		return nil, nil
	}
	s := cfg.Storage
	return storage.NewR2(ctx, storage.Options{
		AccountID:       s.AccountID,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		Bucket:          s.Bucket,
		PublicURL:       s.PublicURL,
		Endpoint:        s.Endpoint,
		Insecure:        s.Insecure,
		CreateBucket:    s.CreateBucket,
		Logger:          c.Logger,
	})
}
