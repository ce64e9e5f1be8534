package measure

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Estimator defaults, in pixels or multiples of the font size.
const (
	DefaultFontSize     = 14.0
	DefaultCharWidth    = 0.55
	DefaultLineHeight   = 1.4
	DefaultHeadingScale = 1.5
	DefaultItemPadding  = 6.0
	DefaultEntryPadding = 8.0
)

// Estimator approximates rendered heights from text. Each glyph is assumed
// to advance CharWidth × FontSize pixels (twice that for wide runes), lines
// wrap greedily at word boundaries, and every line takes LineHeight ×
// FontSize pixels.
type Estimator struct {
	FontSize     float64 `json:"font_size" toml:"font_size"`
	CharWidth    float64 `json:"char_width" toml:"char_width"`
	LineHeight   float64 `json:"line_height" toml:"line_height"`
	HeadingScale float64 `json:"heading_scale" toml:"heading_scale"`
	ItemPadding  float64 `json:"item_padding" toml:"item_padding"`
	EntryPadding float64 `json:"entry_padding" toml:"entry_padding"`
}

// DefaultEstimator returns an estimator tuned for 14px body text.
func DefaultEstimator() Estimator {
	return Estimator{
		FontSize:     DefaultFontSize,
		CharWidth:    DefaultCharWidth,
		LineHeight:   DefaultLineHeight,
		HeadingScale: DefaultHeadingScale,
		ItemPadding:  DefaultItemPadding,
		EntryPadding: DefaultEntryPadding,
	}
}

// withDefaults fills unset fields.
func (e Estimator) withDefaults() Estimator {
	d := DefaultEstimator()
	if e.FontSize <= 0 {
		e.FontSize = d.FontSize
	}
	if e.CharWidth <= 0 {
		e.CharWidth = d.CharWidth
	}
	if e.LineHeight <= 0 {
		e.LineHeight = d.LineHeight
	}
	if e.HeadingScale <= 0 {
		e.HeadingScale = d.HeadingScale
	}
	return e
}

// Fingerprint identifies the estimator settings in cache keys.
func (e Estimator) Fingerprint() string {
	e = e.withDefaults()
	return fmt.Sprintf("fs=%g,cw=%g,lh=%g,hs=%g,ip=%g,ep=%g",
		e.FontSize, e.CharWidth, e.LineHeight, e.HeadingScale, e.ItemPadding, e.EntryPadding)
}

// Measure estimates the height of d at width. The title and entry padding
// are charged to the first item so that item heights always sum to the
// entry height.
func (e Estimator) Measure(ctx context.Context, d Descriptor, width float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "width must be positive, got %v", width)
	}
	e = e.withDefaults()

	chrome := e.EntryPadding
	if strings.TrimSpace(d.Title) != "" {
		size := e.FontSize * e.HeadingScale
		chrome += float64(e.Lines(d.Title, width, size)) * size * e.LineHeight
	}

	if len(d.Items) == 0 {
		return Result{Height: chrome, ItemHeights: []float64{chrome}}, nil
	}

	items := make([]float64, len(d.Items))
	var total float64
	for i, text := range d.Items {
		h := float64(e.Lines(text, width, e.FontSize))*e.FontSize*e.LineHeight + e.ItemPadding
		if i == 0 {
			h += chrome
		}
		items[i] = h
		total += h
	}
	return Result{Height: total, ItemHeights: items}, nil
}

// Lines returns how many lines text occupies at width and font size.
// Explicit newlines start new paragraphs; an empty paragraph is one line.
func (e Estimator) Lines(text string, width, fontSize float64) int {
	e = e.withDefaults()
	advance := e.CharWidth * fontSize
	perLine := int(width / advance)
	if perLine < 1 {
		perLine = 1
	}

	total := 0
	for _, para := range strings.Split(text, "\n") {
		lines, used := 0, 0
		for _, word := range strings.Fields(para) {
			w := runewidth.StringWidth(word)
			if used > 0 && used+1+w <= perLine {
				used += 1 + w
				continue
			}
			n := (w + perLine - 1) / perLine
			lines += n
			used = w - (n-1)*perLine
		}
		total += max(lines, 1)
	}
	return total
}

var _ Provider = Estimator{}
