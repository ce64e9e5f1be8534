package sink

import (
	"fmt"

	"github.com/matzehuels/sheetflow/pkg/paginate"
)

// Drawing constants, in plan pixels.
const (
	defaultColumnWidth = 320.0
	defaultGutter      = 24.0
	pageMargin         = 32.0
	pageGap            = 48.0
	pageHeaderHeight   = 24.0
)

type box struct {
	X, Y, W, H float64
}

// pageFrame is the drawing area of one plan page.
type pageFrame struct {
	Page    int
	Outer   box
	Columns map[int]box
	Regions map[int]paginate.Region
}

// layoutPages computes page frames for a plan. Pages are stacked vertically;
// each page is tall enough for its largest region and any overflow.
func layoutPages(plan paginate.Plan, columnWidth, gutter float64) ([]pageFrame, float64, float64) {
	cols := max(plan.Columns, 1)
	width := 2*pageMargin + float64(cols)*columnWidth + float64(cols-1)*gutter

	heights := make(map[int]float64)
	for _, r := range plan.Regions {
		heights[r.Key.Page] = max(heights[r.Key.Page], r.CapacityHeight)
	}
	for _, pl := range plan.Placements {
		heights[pl.Region.Page] = max(heights[pl.Region.Page], pl.Bottom())
	}

	pages := make([]pageFrame, 0, plan.Pages)
	y := 0.0
	for p := 0; p < plan.Pages; p++ {
		h := pageHeaderHeight + 2*pageMargin + heights[p]
		f := pageFrame{
			Page:    p,
			Outer:   box{X: 0, Y: y, W: width, H: h},
			Columns: make(map[int]box, cols),
			Regions: make(map[int]paginate.Region, cols),
		}
		for c := 0; c < cols; c++ {
			r, ok := plan.Region(paginate.RegionKey{Page: p, Column: c})
			if !ok {
				continue
			}
			f.Regions[c] = r
			f.Columns[c] = box{
				X: pageMargin + float64(c)*(columnWidth+gutter),
				Y: y + pageMargin + pageHeaderHeight,
				W: columnWidth,
				H: r.CapacityHeight,
			}
		}
		pages = append(pages, f)
		y += h + pageGap
	}
	total := y
	if len(pages) > 0 {
		total -= pageGap
	}
	return pages, width, total
}

// placementLabel returns the text drawn inside a placement box.
func placementLabel(pl paginate.Placement, labels map[string]string) string {
	name := pl.EntryID
	if l, ok := labels[pl.EntryID]; ok && l != "" {
		name = l
	}
	if pl.Items.Whole {
		return name
	}
	start, end := pl.Range()
	return fmt.Sprintf("%s (%d-%d of %d)", name, start+1, end, pl.ItemCount)
}

type rgb struct{ R, G, B int }

// palette colours placements by entry so slices of one entry match.
var palette = []rgb{
	{R: 129, G: 199, B: 132},
	{R: 100, G: 181, B: 246},
	{R: 255, G: 183, B: 77},
	{R: 186, G: 104, B: 200},
	{R: 77, G: 208, B: 225},
	{R: 220, G: 231, B: 117},
	{R: 161, G: 136, B: 127},
}

var overflowColor = rgb{R: 229, G: 57, B: 53}

// entryColors assigns palette colours in order of first appearance.
func entryColors(plan paginate.Plan) map[string]rgb {
	out := make(map[string]rgb)
	for _, pl := range plan.Placements {
		if _, ok := out[pl.EntryID]; !ok {
			out[pl.EntryID] = palette[len(out)%len(palette)]
		}
	}
	return out
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
