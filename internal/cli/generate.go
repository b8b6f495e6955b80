package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
)

func (c *CLI) generateCommand() *cobra.Command {
	var (
		outDir  string
		upload  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "generate [m-number...]",
		Short: "Generate marketplace images for many products",
		Long: `Generate the four marketplace images for each product.

Without arguments every approved product is generated, or every product
when none are approved yet. Images are written to --out and, with --upload,
published to R2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i := range args {
				args[i] = strings.ToUpper(args[i])
			}
			return c.runGenerate(cmd.Context(), args, outDir, upload, noCache)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write PNGs into")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload images to R2")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the raster cache")
	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, mNumbers []string, outDir string, upload, noCache bool) error {
	if outDir == "" && !upload {
		outDir = "."
	}
	eng, err := c.openEngine(ctx, noCache)
	if err != nil {
		return err
	}
	defer eng.Close()

	opts := pipeline.BatchOptions{OutDir: outDir}
	if upload {
		up, err := c.newUploader(ctx)
		if err != nil {
			return err
		}
		if up == nil {
			return errors.New(errors.ErrCodeConfiguration, "--upload needs R2 credentials (R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY)")
		}
		c.installHooks()
		opts.Uploader = up
	}

	products, err := product.Select(ctx, eng.store, mNumbers)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Generating %d products", len(products)))
	spinner.Start()
	done := 0
	opts.Progress = func(p *product.Product, results []pipeline.Result) {
		done++
		spinner.SetMessage("Generated %s (%d/%d)", p.MNumber, done, len(products))
	}
	rep, err := eng.runner.Batch(ctx, products, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	printKeyValue("products", fmt.Sprint(rep.Products))
	printKeyValue("images", fmt.Sprint(rep.Images))
	if outDir != "" {
		printKeyValue("written to", outDir)
	}
	if upload {
		printKeyValue("uploaded", fmt.Sprint(len(rep.Uploaded)))
	}
	printFailures(rep.Failures)
	prog.done(fmt.Sprintf("Generated %d images for %d products", rep.Images, rep.Products))
	if len(rep.Failures) > 0 {
		return fmt.Errorf("%d image(s) failed", len(rep.Failures))
	}
	return nil
}
