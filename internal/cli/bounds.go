package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/pkg/bounds"
)

func (c *CLI) boundsCommand() *cobra.Command {
	var layouts bool
	cmd := &cobra.Command{
		Use:   "bounds",
		Short: "Show the template bounds registry and layout table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			reg, table, err := loadBounds(cfg.Assets.BoundsDir)
			if err != nil {
				return err
			}
			if layouts {
				fmt.Fprintln(stdout, layoutTable(table.Layouts()))
				return nil
			}
			fmt.Fprintln(stdout, registryTable(reg.Entries()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&layouts, "layouts", false, "show the layout table instead of the bounds registry")
	return cmd
}

func registryTable(entries []bounds.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		it := string(e.InstructionType)
		if it == "" {
			it = "main"
		}
		rows = append(rows, []string{
			string(e.Size), it,
			mm(e.Rect.X), mm(e.Rect.Y), mm(e.Rect.Width), mm(e.Rect.Height),
		})
	}
	return renderTable([]string{"Size", "Type", "X", "Y", "Width", "Height"}, rows)
}

func layoutTable(layouts []bounds.Layout) string {
	rows := make([][]string, 0, len(layouts))
	for _, l := range layouts {
		icon := "-"
		if l.Icon != nil {
			icon = frac(*l.Icon)
		}
		text := make([]string, 0, len(l.Text))
		for _, f := range l.Text {
			text = append(text, frac(f))
		}
		rows = append(rows, []string{string(l.Size), string(l.Mode), icon, strings.Join(text, " ")})
	}
	return renderTable([]string{"Size", "Mode", "Icon", "Text slots"}, rows)
}

func mm(v float64) string { return fmt.Sprintf("%.1f", v) }

func frac(f bounds.Frac) string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", f.X, f.Y, f.Width, f.Height)
}
