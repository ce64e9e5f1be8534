// Package measure obtains content heights for the planner.
//
// The planner never renders anything itself. A [Provider] turns an entry
// [Descriptor] into heights at a given column width, and a [Measurer] runs
// the provider over a whole document before planning starts. Two providers
// ship with the package:
//
//   - [Estimator] approximates heights from text with a glyph-advance model
//   - [Static] reports heights recorded by an off-screen render
//
// [Cached] wraps either one with a [cache.Cache]. [Compare] measures the
// drift between the two sources for diagnostics.
package measure

import (
	"context"
	"math"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/errors"
)

// ErrNotMeasured is returned by providers that have no height for an entry.
var ErrNotMeasured = errors.New(errors.ErrCodeMeasurementUnavailable, "no measurement recorded")

// Descriptor describes an entry to be measured.
type Descriptor struct {
	ID    string   `json:"id"`
	Index int      `json:"index"`
	Title string   `json:"title,omitempty"`
	Items []string `json:"items,omitempty"`

	// Height and ItemHeights hold values recorded by an off-screen render,
	// used by the Static provider. MeasuredWidth is the column width they
	// were recorded at; zero means unknown.
	Height        *float64  `json:"height,omitempty"`
	ItemHeights   []float64 `json:"item_heights,omitempty"`
	MeasuredWidth float64   `json:"measured_width,omitempty"`
}

// widthTolerance is how far two widths may differ and still count as equal.
const widthTolerance = 1e-9

// SameWidth reports whether two column widths are equal within tolerance.
func SameWidth(a, b float64) bool {
	return math.Abs(a-b) <= widthTolerance
}

// ItemCount returns the number of indivisible items. Entries without items
// are atomic.
func (d Descriptor) ItemCount() int {
	switch {
	case len(d.Items) > 0:
		return len(d.Items)
	case len(d.ItemHeights) > 0:
		return len(d.ItemHeights)
	default:
		return 1
	}
}

// Hash fingerprints the descriptor for cache keys.
func (d Descriptor) Hash() string {
	h, err := cache.HashJSON(d)
	if err != nil {
		return ""
	}
	return h
}

// Result is a provider's answer for one descriptor.
type Result struct {
	Height      float64   `json:"height"`
	ItemHeights []float64 `json:"item_heights,omitempty"`
}

// Provider measures entries at a column width.
type Provider interface {
	Measure(ctx context.Context, d Descriptor, width float64) (Result, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, d Descriptor, width float64) (Result, error)

// Measure calls f.
func (f ProviderFunc) Measure(ctx context.Context, d Descriptor, width float64) (Result, error) {
	return f(ctx, d, width)
}
