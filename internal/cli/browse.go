package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// List styles
var (
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listOverflowStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// browseCommand creates the browse command, an interactive page viewer.
func (c *CLI) browseCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "browse [document|plan.plan.json]",
		Short: "Page through a plan interactively",
		Long: `Show a plan page by page in the terminal.

The argument is either a document, which is planned first, or a plan file
ending in .plan.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0], &flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, input string, flags *layoutFlags) error {
	plan, labels, err := c.loadPlan(ctx, input, flags)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(NewPlanBrowserModel(plan, labels), tea.WithContext(ctx)).Run()
	return err
}

// loadPlan reads a plan file or plans a document.
func (c *CLI) loadPlan(ctx context.Context, input string, flags *layoutFlags) (paginate.Plan, map[string]string, error) {
	if strings.HasSuffix(input, ".plan.json") {
		plan, err := paginate.ReadPlanFile(input)
		return plan, nil, err
	}

	doc, err := flags.loadDocument(input)
	if err != nil {
		return paginate.Plan{}, nil, err
	}
	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return paginate.Plan{}, nil, err
	}
	defer runner.Close()

	opts := flags.options()
	opts.Formats = []string{pipeline.FormatJSON}
	res, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		return paginate.Plan{}, nil, err
	}
	return res.Plan, doc.Titles(), nil
}

// PlanBrowserModel is the bubbletea model for paging through a plan.
type PlanBrowserModel struct {
	Plan   paginate.Plan
	Labels map[string]string
	Page   int
	Cursor int
}

// NewPlanBrowserModel creates a browser positioned on the first page.
func NewPlanBrowserModel(plan paginate.Plan, labels map[string]string) PlanBrowserModel {
	return PlanBrowserModel{Plan: plan, Labels: labels}
}

func (m PlanBrowserModel) Init() tea.Cmd {
	return nil
}

func (m PlanBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h", "pgup":
		if m.Page > 0 {
			m.Page--
			m.Cursor = 0
		}
	case "right", "l", "pgdown":
		if m.Page < m.Plan.Pages-1 {
			m.Page++
			m.Cursor = 0
		}
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.onPage())-1 {
			m.Cursor++
		}
	}
	return m, nil
}

// onPage returns the placements of the current page in column order.
func (m PlanBrowserModel) onPage() []paginate.Placement {
	var out []paginate.Placement
	for col := 0; col < max(m.Plan.Columns, 1); col++ {
		out = append(out, m.Plan.InRegion(paginate.RegionKey{Page: m.Page, Column: col})...)
	}
	return out
}

// Selected returns the placement under the cursor.
func (m PlanBrowserModel) Selected() (paginate.Placement, bool) {
	placed := m.onPage()
	if m.Cursor < 0 || m.Cursor >= len(placed) {
		return paginate.Placement{}, false
	}
	return placed[m.Cursor], true
}

func (m PlanBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Page %d of %d", m.Page+1, max(m.Plan.Pages, 1))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ page  ↑/↓ select  q quit"))
	b.WriteString("\n\n")

	placed := m.onPage()
	if len(placed) == 0 {
		b.WriteString(listDimStyle.Render("  (empty page)"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(placed))
	for i, pl := range placed {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		status := ""
		if pl.Overflowed {
			status = "overflow"
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", pl.Region.Column+1),
			m.label(pl.EntryID),
			pl.Items.String(),
			fmt.Sprintf("%.0f", pl.TopOffset),
			fmt.Sprintf("%.0f", pl.Height),
			status,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Col", "Entry", "Items", "Top", "Height", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(placed) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if placed[row].Overflowed {
				base = listOverflowStyle
			}
			if row == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if pl, ok := m.Selected(); ok {
		region, _ := m.Plan.Region(pl.Region)
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s · region %s · bottom %.0f of %.0f",
			pl.EntryID, pl.Region, pl.Bottom(), region.CapacityHeight)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m PlanBrowserModel) label(id string) string {
	if l, ok := m.Labels[id]; ok && l != "" {
		return l
	}
	return id
}
