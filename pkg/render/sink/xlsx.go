package sink

import (
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

// Sheet names in the rendered workbook.
const (
	SheetPlacements = "Placements"
	SheetRegions    = "Regions"
	SheetDrift      = "Drift"
)

// XLSXOption configures workbook rendering.
type XLSXOption func(*xlsxRenderer)

type xlsxRenderer struct {
	labels map[string]string
	report *measure.Report
}

// WithXLSXLabels adds a title column filled from labels, keyed by entry ID.
func WithXLSXLabels(labels map[string]string) XLSXOption {
	return func(r *xlsxRenderer) { r.labels = labels }
}

// WithDriftReport adds a sheet listing estimate drift per entry.
func WithDriftReport(report *measure.Report) XLSXOption {
	return func(r *xlsxRenderer) { r.report = report }
}

// RenderXLSX writes the plan as a workbook with one row per placement and
// one row per region.
func RenderXLSX(plan paginate.Plan, opts ...XLSXOption) ([]byte, error) {
	r := xlsxRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetPlacements); err != nil {
		return nil, wrapXLSX(err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, wrapXLSX(err)
	}

	if err := r.writePlacements(f, plan, header); err != nil {
		return nil, wrapXLSX(err)
	}
	if err := r.writeRegions(f, plan, header); err != nil {
		return nil, wrapXLSX(err)
	}
	if r.report != nil {
		if err := r.writeDrift(f, *r.report, header); err != nil {
			return nil, wrapXLSX(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, wrapXLSX(err)
	}
	return buf.Bytes(), nil
}

func (r *xlsxRenderer) writePlacements(f *excelize.File, plan paginate.Plan, style int) error {
	rows := [][]any{{"Entry", "Title", "Page", "Column", "Items", "Item count", "Top", "Height", "Bottom", "Overflowed"}}
	for _, pl := range plan.Placements {
		title := pl.EntryID
		if l, ok := r.labels[pl.EntryID]; ok && l != "" {
			title = l
		}
		rows = append(rows, []any{
			pl.EntryID, title, pl.Region.Page + 1, pl.Region.Column + 1,
			pl.Items.String(), pl.ItemCount, pl.TopOffset, pl.Height, pl.Bottom(), pl.Overflowed,
		})
	}
	return writeRows(f, SheetPlacements, rows, style)
}

func (r *xlsxRenderer) writeRegions(f *excelize.File, plan paginate.Plan, style int) error {
	if _, err := f.NewSheet(SheetRegions); err != nil {
		return err
	}
	rows := [][]any{{"Page", "Column", "Capacity", "Threshold", "Used", "Fill", "Placements"}}
	for _, region := range plan.Regions {
		placed := plan.InRegion(region.Key)
		used := 0.0
		for _, pl := range placed {
			used = max(used, pl.Bottom())
		}
		fill := 0.0
		if region.CapacityHeight > 0 {
			fill = used / region.CapacityHeight
		}
		rows = append(rows, []any{
			region.Key.Page + 1, region.Key.Column + 1, region.CapacityHeight,
			region.BottomThresholdFraction, used, fill, len(placed),
		})
	}
	return writeRows(f, SheetRegions, rows, style)
}

func (r *xlsxRenderer) writeDrift(f *excelize.File, report measure.Report, style int) error {
	if _, err := f.NewSheet(SheetDrift); err != nil {
		return err
	}
	rows := [][]any{{"Entry", "Estimated", "Rendered", "Error", "Relative error", "Drift"}}
	for _, d := range report.Entries {
		rows = append(rows, []any{d.EntryID, d.Estimated, d.Rendered, d.Error, d.RelativeError, d.Drift})
	}
	rows = append(rows,
		[]any{},
		[]any{"Width", report.Width},
		[]any{"Mean error", report.MeanError},
		[]any{"Std dev", report.StdDevError},
		[]any{"Mean abs error", report.MeanAbsError},
		[]any{"Max abs error", report.MaxAbsError},
		[]any{"Total drift", report.Drift},
	)
	for _, id := range report.Skipped {
		rows = append(rows, []any{"Skipped", id})
	}
	return writeRows(f, SheetDrift, rows, style)
}

// writeRows fills a sheet from the top-left corner and bolds the first row.
func writeRows(f *excelize.File, sheet string, rows [][]any, style int) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 20)
}

func wrapXLSX(err error) error {
	return errors.Wrap(errors.ErrCodeInternal, err, "render xlsx")
}
