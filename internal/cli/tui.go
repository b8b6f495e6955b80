package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/northbynortheast/signmaker/pkg/product"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// ProductPicker - Interactive product selection
// =============================================================================

// ProductPicker is the bubbletea model behind "products pick". Typing
// filters by M Number or description.
type ProductPicker struct {
	All      []*product.Product
	Filter   string
	Cursor   int
	Offset   int
	Height   int
	Selected *product.Product
}

func NewProductPicker(products []*product.Product) ProductPicker {
	return ProductPicker{All: products, Height: 15}
}

// visible returns the products matching the filter.
func (m ProductPicker) visible() []*product.Product {
	if m.Filter == "" {
		return m.All
	}
	q := strings.ToLower(m.Filter)
	var out []*product.Product
	for _, p := range m.All {
		if strings.Contains(strings.ToLower(p.MNumber), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

func (m ProductPicker) Init() tea.Cmd { return nil }

func (m ProductPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		items := m.visible()
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.Cursor > 0 {
				m.Cursor--
			}
		case tea.KeyDown:
			if m.Cursor < len(items)-1 {
				m.Cursor++
			}
		case tea.KeyEnter:
			if len(items) > 0 {
				m.Selected = items[m.Cursor]
				return m, tea.Quit
			}
		case tea.KeyBackspace:
			if m.Filter != "" {
				r := []rune(m.Filter)
				m.Filter = string(r[:len(r)-1])
				m.Cursor, m.Offset = 0, 0
			}
		case tea.KeyRunes, tea.KeySpace:
			m.Filter += string(msg.Runes)
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}

	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m, nil
}

func (m ProductPicker) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Select Product"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("type to filter  ↑/↓ navigate  ⏎ select  esc quit"))
	b.WriteString("\n")
	b.WriteString("filter: " + StyleHighlight.Render(m.Filter))
	b.WriteString("\n\n")

	items := m.visible()
	if len(items) == 0 {
		b.WriteString(listDimStyle.Render("  no matching products"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(items))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		p := items[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, p.MNumber, p.Description, string(p.Size), string(p.Color), string(p.QAStatus)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "M Number", "Description", "Size", "Color", "QA").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			style := lipgloss.NewStyle()
			if col == 5 && idx < len(items) {
				style = style.Foreground(qaColor(items[idx].QAStatus))
			}
			if idx == m.Cursor {
				return style.Bold(true)
			}
			return style
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(items))))
	return b.String()
}

func qaColor(s product.QAStatus) lipgloss.Color {
	switch s {
	case product.QAApproved:
		return colorGreen
	case product.QARejected:
		return colorRed
	default:
		return colorYellow
	}
}
