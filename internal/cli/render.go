package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

type renderOpts struct {
	imageType string
	output    string
	svg       bool
	all       bool
	noCache   bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{imageType: string(render.ImageMain)}

	cmd := &cobra.Command{
		Use:   "render [m-number]",
		Short: "Render one image of a product to PNG or SVG",
		Long: `Render one image of a product.

The image type is a name (main, dimensions, peel_and_stick, rear, master)
or a code (001-004). Use --all to render all four marketplace images, and
--svg to write the parameterized SVG without rasterizing. Without an
M Number the product is chosen interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m string
			if len(args) == 1 {
				m = strings.ToUpper(args[0])
			}
			return c.runRender(cmd.Context(), m, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.imageType, "type", "t", opts.imageType, "image type name or code")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file, or directory with --all (default "{M} - {code}.png")`)
	cmd.Flags().BoolVar(&opts.svg, "svg", false, "write the SVG instead of a PNG")
	cmd.Flags().BoolVar(&opts.all, "all", false, "render all four marketplace images")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the raster cache")
	return cmd
}

func (c *CLI) runRender(ctx context.Context, mNumber string, opts renderOpts) error {
	t, err := pipeline.ParseImageType(opts.imageType)
	if err != nil {
		return err
	}
	eng, err := c.openEngine(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer eng.Close()

	var p *product.Product
	if mNumber == "" {
		if p, err = pickProduct(ctx, eng.store); err != nil || p == nil {
			return err
		}
	} else if p, err = eng.store.Get(ctx, mNumber); err != nil {
		return err
	}

	if opts.svg {
		doc, err := eng.runner.SVG(ctx, p, t)
		if err != nil {
			return err
		}
		out := opts.output
		if out == "" {
			out = doc.Name + ".svg"
		}
		if err := os.WriteFile(out, doc.Bytes, 0o644); err != nil {
			return err
		}
		printSuccess("Wrote %s", doc.Name)
		printFile(out)
		return nil
	}

	if opts.all {
		return c.renderAll(ctx, eng, p, opts.output)
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s", pipeline.VariantName(p.MNumber, t.Code())))
	spinner.Start()
	res := eng.runner.Render(ctx, p, t)
	spinner.Stop()
	if res.Err != nil {
		return res.Err
	}

	out := opts.output
	if out == "" {
		out = res.Key.FileName()
	}
	if err := os.WriteFile(out, res.Image.Data, 0o644); err != nil {
		return err
	}
	printResults([]pipeline.Result{res})
	printFile(out)
	return nil
}

// renderAll writes the four marketplace PNGs of p into dir.
func (c *CLI) renderAll(ctx context.Context, eng *engine, p *product.Product, dir string) error {
	if dir == "" {
		dir = "."
	}
	prog := newProgress(c.Logger)
	rep, err := eng.runner.Batch(ctx, []*product.Product{p}, pipeline.BatchOptions{OutDir: dir})
	if err != nil {
		return err
	}
	for _, path := range rep.Written {
		printFile(path)
	}
	printFailures(rep.Failures)
	prog.done(fmt.Sprintf("Rendered %d of 4 images", rep.Images))
	if len(rep.Failures) > 0 {
		return fmt.Errorf("%d variant(s) failed", len(rep.Failures))
	}
	return nil
}
