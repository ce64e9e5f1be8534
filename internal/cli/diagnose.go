package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// diagnoseCommand creates the diagnose command, which compares estimated
// heights with the heights recorded in the document.
func (c *CLI) diagnoseCommand() *cobra.Command {
	var flags layoutFlags
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "diagnose [document]",
		Short: "Compare estimated heights with recorded ones",
		Long: `Measure the document with both sources at the same width and show how far
the text estimates are from the recorded heights, entry by entry and as a
running total.

With --xlsx the plan and the drift report are also written as a workbook.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiagnose(cmd.Context(), args[0], xlsxPath, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write plan and drift report to this workbook")

	return cmd
}

func (c *CLI) runDiagnose(ctx context.Context, input, xlsxPath string, flags *layoutFlags) error {
	doc, err := flags.loadDocument(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := flags.options()
	report, err := runner.Diagnose(ctx, doc, opts)
	if err != nil {
		return err
	}

	fmt.Println(StyleTitle.Render(fmt.Sprintf("Estimate drift at width %g", report.Width)))
	fmt.Println(driftTable(report))
	printKeyValue("mean error", fmt.Sprintf("%+.1f ± %.1f", report.MeanError, report.StdDevError))
	printKeyValue("mean |error|", fmt.Sprintf("%.1f", report.MeanAbsError))
	printKeyValue("max |error|", fmt.Sprintf("%.1f", report.MaxAbsError))
	printKeyValue("total drift", fmt.Sprintf("%+.1f", report.Drift))
	for _, id := range report.Skipped {
		printWarning("%s has no recorded height", id)
	}

	if xlsxPath == "" {
		return nil
	}

	opts.Formats = []string{pipeline.FormatXLSX}
	res, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		return err
	}
	artifacts, _, err := runner.RenderWithCacheInfo(ctx, res.Plan, pipeline.RenderInput{
		Title:  doc.Title,
		Labels: doc.Titles(),
		Report: &report,
	}, pipeline.Options{Formats: opts.Formats, Labels: true})
	if err != nil {
		return err
	}
	if err := os.WriteFile(xlsxPath, artifacts[pipeline.FormatXLSX], 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", xlsxPath)
	}
	printNewline()
	printSuccess("Workbook written")
	printFile(xlsxPath)
	return nil
}

// driftTable renders the per-entry comparison.
func driftTable(report measure.Report) string {
	rows := make([][]string, 0, len(report.Entries))
	for _, d := range report.Entries {
		rows = append(rows, []string{
			d.EntryID,
			fmt.Sprintf("%.1f", d.Estimated),
			fmt.Sprintf("%.1f", d.Rendered),
			fmt.Sprintf("%+.1f", d.Error),
			fmt.Sprintf("%+.1f%%", d.RelativeError*100),
			fmt.Sprintf("%+.1f", d.Drift),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Entry", "Estimated", "Rendered", "Error", "Relative", "Drift").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if col == 3 && row < len(report.Entries) {
				if e := report.Entries[row].Error; e > 0 {
					return cellStyle.Foreground(colorYellow)
				} else if e < 0 {
					return cellStyle.Foreground(colorCyan)
				}
			}
			return cellStyle
		}).
		Render()
}
