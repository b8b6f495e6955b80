package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/export"
	"github.com/northbynortheast/signmaker/pkg/product"
)

type exportOpts struct {
	output   string
	mNumbers []string
	noCache  bool
}

func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write marketplace listing files and staff folder bundles",
		Long: `Write marketplace listing files and staff folder bundles.

Without --m the approved products are exported, or every product when none
is approved yet.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.output, "output", "o", "", "output file (default: a timestamped name in the current directory)")
	pf.StringSliceVar(&opts.mNumbers, "m", nil, "M Numbers to export (comma separated)")

	cmd.AddCommand(c.exportAmazonCommand(&opts))
	cmd.AddCommand(c.exportListingCommand(&opts, "etsy", "Etsy Shop Uploader spreadsheet", "etsy_shop_uploader", "xlsx", export.WriteEtsy))
	cmd.AddCommand(c.exportListingCommand(&opts, "ebay", "eBay File Exchange CSV", "ebay_file_exchange", "csv", export.WriteEbay))
	cmd.AddCommand(c.exportFoldersCommand(&opts))
	return cmd
}

func (o *exportOpts) path(prefix, ext string) string {
	if o.output != "" {
		return o.output
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), ext)
}

func (o *exportOpts) upper() []string {
	out := make([]string, 0, len(o.mNumbers))
	for _, m := range o.mNumbers {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// writeListing loads the selection and writes one listing file.
func (c *CLI) writeListing(ctx context.Context, opts *exportOpts, prefix, ext string, write func(io.Writer, []*product.Product) error) error {
	var products []*product.Product
	err := c.withStore(ctx, func(s product.Store) error {
		var err error
		products, err = product.Select(ctx, s, opts.upper())
		return err
	})
	if err != nil {
		return err
	}
	path := opts.path(prefix, ext)
	if err := writeFileAtomic(path, func(w io.Writer) error { return write(w, products) }); err != nil {
		return err
	}
	printSuccess("Exported %d products", len(products))
	printFile(path)
	return nil
}

func (c *CLI) exportOptions() (export.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{PublicURL: cfg.Storage.PublicURL}, nil
}

func (c *CLI) exportAmazonCommand(opts *exportOpts) *cobra.Command {
	var req export.AmazonRequest
	cmd := &cobra.Command{
		Use:   "amazon",
		Short: "Amazon flatfile spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eo, err := c.exportOptions()
			if err != nil {
				return err
			}
			return c.writeListing(cmd.Context(), opts, "amazon_flatfile", "xlsx", func(w io.Writer, products []*product.Product) error {
				return export.WriteAmazon(w, products, req, eo)
			})
		},
	}
	cmd.Flags().StringVar(&req.Theme, "theme", "", "product family name (default: first description)")
	cmd.Flags().StringVar(&req.UseCases, "use-cases", "", "where the signs are used, e.g. \"offices, car parks\"")
	return cmd
}

func (c *CLI) exportListingCommand(opts *exportOpts, name, short, prefix, ext string, write func(io.Writer, []*product.Product, export.Options) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eo, err := c.exportOptions()
			if err != nil {
				return err
			}
			return c.writeListing(cmd.Context(), opts, prefix, ext, func(w io.Writer, products []*product.Product) error {
				return write(w, products, eo)
			})
		},
	}
}

func (c *CLI) exportFoldersCommand(opts *exportOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "ZIP of staff folders with print masters and images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := c.openEngine(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer eng.Close()

			products, err := product.Select(ctx, eng.store, opts.upper())
			if err != nil {
				return err
			}

			spinner := newSpinner(ctx, fmt.Sprintf("Building folders for %d products...", len(products)))
			spinner.Start()
			var sum export.Summary
			path := opts.path("m_number_folders", "zip")
			err = writeFileAtomic(path, func(w io.Writer) error {
				var err error
				sum, err = export.WriteFolders(ctx, w, eng.runner, products, c.Logger)
				return err
			})
			if err != nil {
				spinner.StopWithError("Export failed")
				return err
			}
			spinner.StopWithSuccess("Exported %d products, %d images", sum.Products, sum.Images)
			printFile(path)
			printFailures(sum.Failures)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render without the raster cache")
	return cmd
}

// writeFileAtomic writes through a temp file renamed into place on success.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".signmaker-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	return nil
}
