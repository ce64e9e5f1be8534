package sink

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/sheetflow/pkg/paginate"
)

const svgStyle = `
    .page { fill: #ffffff; stroke: #9e9e9e; stroke-width: 1; }
    .page-label { font: bold 14px sans-serif; fill: #424242; }
    .column { fill: #fafafa; stroke: #bdbdbd; stroke-dasharray: 4 3; }
    .threshold { stroke: #ef6c00; stroke-width: 1; stroke-dasharray: 6 4; }
    .placement { stroke: #37474f; stroke-width: 1; }
    .placement.overflowed { stroke: #b71c1c; stroke-width: 2; }
    .placement-label { font: 12px sans-serif; fill: #212121; }`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	labels      map[string]string
	columnWidth float64
	gutter      float64
	thresholds  bool
}

// WithLabels sets display names for entries, keyed by entry ID.
func WithLabels(labels map[string]string) SVGOption {
	return func(r *svgRenderer) { r.labels = labels }
}

// WithColumnWidth sets the drawn width of each column.
func WithColumnWidth(w float64) SVGOption {
	return func(r *svgRenderer) {
		if w > 0 {
			r.columnWidth = w
		}
	}
}

// WithGutter sets the gap between columns.
func WithGutter(g float64) SVGOption {
	return func(r *svgRenderer) {
		if g >= 0 {
			r.gutter = g
		}
	}
}

// WithThresholdLines draws each region's bottom-threshold line when it is
// below the region's capacity.
func WithThresholdLines() SVGOption {
	return func(r *svgRenderer) { r.thresholds = true }
}

// RenderSVG draws the plan as an SVG document.
func RenderSVG(plan paginate.Plan, opts ...SVGOption) []byte {
	r := svgRenderer{columnWidth: defaultColumnWidth, gutter: defaultGutter}
	for _, opt := range opts {
		opt(&r)
	}

	pages, width, height := layoutPages(plan, r.columnWidth, r.gutter)
	colors := entryColors(plan)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgStyle)

	for _, f := range pages {
		r.renderPage(&buf, plan, f, colors)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderPage(buf *bytes.Buffer, plan paginate.Plan, f pageFrame, colors map[string]rgb) {
	fmt.Fprintf(buf, `  <g id="page-%d">`+"\n", f.Page)
	fmt.Fprintf(buf, `    <rect class="page" x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>`+"\n",
		f.Outer.X, f.Outer.Y, f.Outer.W, f.Outer.H)
	fmt.Fprintf(buf, `    <text class="page-label" x="%.1f" y="%.1f">Page %d</text>`+"\n",
		f.Outer.X+pageMargin, f.Outer.Y+pageMargin, f.Page+1)

	for c := 0; c < max(plan.Columns, 1); c++ {
		col, ok := f.Columns[c]
		if !ok {
			continue
		}
		fmt.Fprintf(buf, `    <rect class="column" x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>`+"\n",
			col.X, col.Y, col.W, col.H)

		region := f.Regions[c]
		if r.thresholds && region.BottomThresholdFraction < 1 {
			ty := col.Y + region.ThresholdLine()
			fmt.Fprintf(buf, `    <line class="threshold" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
				col.X, ty, col.X+col.W, ty)
		}

		for _, pl := range plan.InRegion(region.Key) {
			r.renderPlacement(buf, pl, col, colors)
		}
	}
	buf.WriteString("  </g>\n")
}

func (r *svgRenderer) renderPlacement(buf *bytes.Buffer, pl paginate.Placement, col box, colors map[string]rgb) {
	class := "placement"
	fill := colors[pl.EntryID]
	if pl.Overflowed {
		class += " overflowed"
		fill = overflowColor
	}
	y := col.Y + pl.TopOffset
	fmt.Fprintf(buf, `    <rect class="%s" data-entry="%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="0.6"/>`+"\n",
		class, html.EscapeString(pl.EntryID), col.X, y, col.W, pl.Height, fill.hex())
	if pl.Height >= 14 {
		fmt.Fprintf(buf, `    <text class="placement-label" x="%.1f" y="%.1f">%s</text>`+"\n",
			col.X+6, y+14, html.EscapeString(placementLabel(pl, r.labels)))
	}
}
