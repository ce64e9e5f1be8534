// Package sink draws placement plans.
//
// Each sink reads a [paginate.Plan] and produces bytes in one output format:
//
//   - [RenderJSON]: the plan file itself, readable by paginate.ReadPlanFile
//   - [RenderSVG]: pages stacked vertically, one box per placement
//   - [RenderPDF]: one PDF page per plan page, scaled to A4
//   - [RenderXLSX]: a workbook listing placements, regions and estimate drift
//
// Sinks draw the plan, not the content: a placement is a labelled box at its
// offset, and overflowed placements are highlighted. Sinks never modify the
// plan.
package sink
