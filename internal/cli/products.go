package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	catalogue "github.com/northbynortheast/signmaker/pkg/io"
	"github.com/northbynortheast/signmaker/pkg/product"
)

func (c *CLI) productsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product", "p"},
		Short:   "Manage the product database",
	}

	cmd.AddCommand(c.productsListCommand())
	cmd.AddCommand(c.productsShowCommand())
	cmd.AddCommand(c.productsAddCommand())
	cmd.AddCommand(c.productsDeleteCommand())
	cmd.AddCommand(c.productsQACommand())
	cmd.AddCommand(c.productsPickCommand())
	cmd.AddCommand(c.productsImportCommand())
	cmd.AddCommand(c.productsDumpCommand())
	return cmd
}

// withStore opens the store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(product.Store) error) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *CLI) productsListCommand() *cobra.Command {
	var qa string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f product.Filter
			if qa != "" {
				status, err := product.ParseQAStatus(qa)
				if err != nil {
					return err
				}
				f.QAStatus = status
			}
			return c.withStore(cmd.Context(), func(s product.Store) error {
				products, err := s.List(cmd.Context(), f)
				if err != nil {
					return err
				}
				if len(products) == 0 {
					printInfo("No products")
					return nil
				}
				fmt.Fprintln(stdout, productTable(products))
				printDetail("%d products", len(products))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&qa, "qa", "", "only products with this QA status (pending, approved, rejected)")
	return cmd
}

func productTable(products []*product.Product) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.MNumber, p.Description, string(p.Size), string(p.Color),
			p.Mounting.Display(), string(p.LayoutMode), string(p.QAStatus),
		})
	}
	return renderTable([]string{"M Number", "Description", "Size", "Color", "Mounting", "Layout", "QA"}, rows)
}

func (c *CLI) productsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <m-number>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s product.Store) error {
				p, err := s.Get(cmd.Context(), strings.ToUpper(args[0]))
				if err != nil {
					return err
				}
				printProduct(p)
				return nil
			})
		},
	}
}

func printProduct(p *product.Product) {
	fmt.Fprintln(stdout, StyleTitle.Render(p.MNumber)+" "+StyleDim.Render(p.FolderName()))
	printKeyValue("description", p.Description)
	printKeyValue("size", fmt.Sprintf("%s (%s)", p.Size, p.Size.DisplayMM()))
	printKeyValue("color", p.Color.Display())
	printKeyValue("orientation", string(p.Orientation))
	printKeyValue("mounting", p.Mounting.Display())
	printKeyValue("layout", string(p.LayoutMode))
	printKeyValue("font", string(p.Font))
	printKeyValue("icons", strings.Join(p.Icons, ", "))
	for i, line := range p.TextLines {
		printKeyValue(fmt.Sprintf("text %d", i+1), fmt.Sprintf("%q ×%g", line.Text, line.Scale))
	}
	printKeyValue("icon scale", fmt.Sprintf("%g", p.IconScale))
	printKeyValue("text scale", fmt.Sprintf("%g", p.TextScale))
	printKeyValue("icon offset", fmt.Sprintf("%g, %g", p.IconOffsetX, p.IconOffsetY))
	if p.EAN != "" {
		printKeyValue("ean", p.EAN)
	}
	printKeyValue("qa", joinNonEmpty(" · ", string(p.QAStatus), p.QAComment))
}

type addOpts struct {
	description string
	size        string
	color       string
	mounting    string
	orientation string
	layout      string
	font        string
	icons       []string
	text        []string
	ean         string
}

func (c *CLI) productsAddCommand() *cobra.Command {
	var opts addOpts
	cmd := &cobra.Command{
		Use:   "add <m-number>",
		Short: "Add a product",
		Example: `  signmaker products add M1001 --description "No Entry" --size dracula --color silver \
    --layout A --icon no_entry --text "NO ENTRY"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.product(strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(s product.Store) error {
				if err := s.Create(cmd.Context(), p); err != nil {
					return err
				}
				printSuccess("Added %s", p.MNumber)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.description, "description", "d", "", "product description")
	f.StringVar(&opts.size, "size", "", "size: dracula, saville, dick, barzan, baby_jesus")
	f.StringVar(&opts.color, "color", "", "color: silver, gold, white")
	f.StringVar(&opts.mounting, "mounting", "", "self_adhesive (default) or pre_drilled")
	f.StringVar(&opts.orientation, "orientation", "", "landscape (default) or portrait")
	f.StringVar(&opts.layout, "layout", "", "layout mode A-F")
	f.StringVar(&opts.font, "font", "", "arial_heavy (default) or arial_bold")
	f.StringArrayVar(&opts.icons, "icon", nil, "icon file name (repeatable)")
	f.StringArrayVar(&opts.text, "text", nil, "text line (repeatable)")
	f.StringVar(&opts.ean, "ean", "", "EAN barcode")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("color")
	return cmd
}

// product parses the flags into a normalized, valid product.
func (o addOpts) product(mNumber string) (*product.Product, error) {
	p := &product.Product{
		MNumber:     mNumber,
		Description: o.description,
		Orientation: product.Orientation(o.orientation),
		Font:        product.Font(o.font),
		Icons:       o.icons,
		EAN:         o.ean,
	}
	var err error
	if p.Size, err = product.ParseSize(o.size); err != nil {
		return nil, err
	}
	if p.Color, err = product.ParseColor(o.color); err != nil {
		return nil, err
	}
	if o.mounting != "" {
		if p.Mounting, err = product.ParseMounting(o.mounting); err != nil {
			return nil, err
		}
	}
	if o.layout != "" {
		if p.LayoutMode, err = product.ParseLayoutMode(o.layout); err != nil {
			return nil, err
		}
	}
	for _, line := range o.text {
		p.TextLines = append(p.TextLines, product.TextLine{Text: line})
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *CLI) productsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <m-number>",
		Aliases: []string{"rm"},
		Short:   "Delete a product",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := strings.ToUpper(args[0])
			return c.withStore(cmd.Context(), func(s product.Store) error {
				if err := s.Delete(cmd.Context(), m); err != nil {
					return err
				}
				printSuccess("Deleted %s", m)
				return nil
			})
		},
	}
}

func (c *CLI) productsQACommand() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "qa <m-number> <pending|approved|rejected>",
		Short: "Set a product's QA status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := product.ParseQAStatus(args[1])
			if err != nil {
				return err
			}
			patch := product.Patch{QAStatus: &status}
			if cmd.Flags().Changed("comment") {
				patch.QAComment = &comment
			}
			return c.withStore(cmd.Context(), func(s product.Store) error {
				p, err := s.Update(cmd.Context(), strings.ToUpper(args[0]), patch)
				if err != nil {
					return err
				}
				printSuccess("%s is %s", p.MNumber, p.QAStatus)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "review comment")
	return cmd
}

func (c *CLI) productsPickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Choose a product interactively and print its details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s product.Store) error {
				picked, err := pickProduct(cmd.Context(), s)
				if err != nil || picked == nil {
					return err
				}
				printProduct(picked)
				return nil
			})
		},
	}
}

// pickProduct runs the interactive picker. It returns nil when the user
// quits without choosing.
func pickProduct(ctx context.Context, s product.Store) (*product.Product, error) {
	products, err := s.List(ctx, product.Filter{})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		printInfo("No products")
		return nil, nil
	}
	final, err := tea.NewProgram(NewProductPicker(products), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	return final.(ProductPicker).Selected, nil
}

func (c *CLI) productsImportCommand() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file.json|file.csv>",
		Short: "Load products from a JSON or CSV catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := catalogue.ImportFile(args[0])
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(s product.Store) error {
				rep, err := catalogue.Load(cmd.Context(), s, products, overwrite)
				if err != nil {
					return err
				}
				printSuccess("Imported %d products", rep.Created+rep.Updated)
				printKeyValue("created", fmt.Sprint(rep.Created))
				printKeyValue("updated", fmt.Sprint(rep.Updated))
				printKeyValue("skipped", fmt.Sprint(rep.Skipped))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace products that already exist")
	return cmd
}

func (c *CLI) productsDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file.json|file.csv>",
		Short: "Write every product to a JSON or CSV catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s product.Store) error {
				products, err := s.List(cmd.Context(), product.Filter{})
				if err != nil {
					return err
				}
				if err := catalogue.ExportFile(args[0], products); err != nil {
					return err
				}
				printSuccess("Wrote %d products", len(products))
				printFile(args[0])
				return nil
			})
		},
	}
}
