package sink

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

// A4 portrait, in millimetres.
const (
	pdfPageWidth  = 210.0
	pdfPageHeight = 297.0
	pdfMargin     = 10.0
)

// PDFOption configures PDF rendering.
type PDFOption func(*pdfRenderer)

type pdfRenderer struct {
	title      string
	labels     map[string]string
	thresholds bool
}

// WithPDFTitle sets the document title shown in each page header.
func WithPDFTitle(title string) PDFOption {
	return func(r *pdfRenderer) { r.title = title }
}

// WithPDFLabels sets display names for entries, keyed by entry ID.
func WithPDFLabels(labels map[string]string) PDFOption {
	return func(r *pdfRenderer) { r.labels = labels }
}

// WithPDFThresholdLines draws bottom-threshold lines below capacity.
func WithPDFThresholdLines() PDFOption {
	return func(r *pdfRenderer) { r.thresholds = true }
}

// RenderPDF draws each plan page on its own A4 page.
func RenderPDF(plan paginate.Plan, opts ...PDFOption) ([]byte, error) {
	r := pdfRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCreator("sheetflow", true)
	if r.title != "" {
		pdf.SetTitle(r.title, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pages, _, _ := layoutPages(plan, defaultColumnWidth, defaultGutter)
	colors := entryColors(plan)

	if len(pages) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(pdfMargin, pdfMargin)
		pdf.CellFormat(0, 6, "Empty plan", "", 0, "L", false, 0, "")
	}
	for _, f := range pages {
		r.renderPage(pdf, tr, plan, f, colors)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render pdf")
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) renderPage(pdf *fpdf.Fpdf, tr func(string) string, plan paginate.Plan, f pageFrame, colors map[string]rgb) {
	pdf.AddPage()

	header := fmt.Sprintf("Page %d of %d", f.Page+1, plan.Pages)
	if r.title != "" {
		header = r.title + " - " + header
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(pdfMargin, pdfMargin)
	pdf.CellFormat(0, 6, tr(header), "", 0, "L", false, 0, "")

	drawW := pdfPageWidth - 2*pdfMargin
	drawH := pdfPageHeight - 2*pdfMargin - 10
	contentW := f.Outer.W - 2*pageMargin
	contentH := f.Outer.H - 2*pageMargin - pageHeaderHeight
	scale := math.Min(drawW/contentW, drawH/math.Max(contentH, 1))

	originX := pdfMargin
	originY := pdfMargin + 10
	top := f.Outer.Y + pageMargin + pageHeaderHeight

	at := func(b box) (x, y float64) {
		return originX + (b.X-pageMargin)*scale, originY + (b.Y-top)*scale
	}

	for c := 0; c < max(plan.Columns, 1); c++ {
		col, ok := f.Columns[c]
		if !ok {
			continue
		}
		cx, cy := at(col)
		pdf.SetDrawColor(189, 189, 189)
		pdf.SetFillColor(250, 250, 250)
		pdf.SetLineWidth(0.2)
		pdf.Rect(cx, cy, col.W*scale, col.H*scale, "FD")

		region := f.Regions[c]
		if r.thresholds && region.BottomThresholdFraction < 1 {
			ty := cy + region.ThresholdLine()*scale
			pdf.SetDrawColor(239, 108, 0)
			pdf.SetDashPattern([]float64{2, 1.5}, 0)
			pdf.Line(cx, ty, cx+col.W*scale, ty)
			pdf.SetDashPattern([]float64{}, 0)
		}

		for _, pl := range plan.InRegion(region.Key) {
			r.renderPlacement(pdf, tr, pl, cx, cy, col.W*scale, scale, colors)
		}
	}
}

func (r *pdfRenderer) renderPlacement(pdf *fpdf.Fpdf, tr func(string) string, pl paginate.Placement, cx, cy, w, scale float64, colors map[string]rgb) {
	fill := colors[pl.EntryID]
	pdf.SetDrawColor(55, 71, 79)
	pdf.SetLineWidth(0.2)
	if pl.Overflowed {
		fill = overflowColor
		pdf.SetDrawColor(183, 28, 28)
		pdf.SetLineWidth(0.6)
	}
	pdf.SetFillColor(fill.R, fill.G, fill.B)

	y := cy + pl.TopOffset*scale
	h := pl.Height * scale
	pdf.Rect(cx, y, w, h, "FD")

	if h < 4 {
		return
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(33, 33, 33)
	label := fitText(pdf, tr(placementLabel(pl, r.labels)), w-2)
	pdf.SetXY(cx+1, y+0.5)
	pdf.CellFormat(w-2, 3.5, label, "", 0, "L", false, 0, "")
}

// fitText truncates s until it fits within w at the current font.
func fitText(pdf *fpdf.Fpdf, s string, w float64) string {
	for len(s) > 0 && pdf.GetStringWidth(s) > w {
		s = s[:len(s)-1]
	}
	return s
}
