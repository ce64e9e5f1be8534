// Package noise filters repeated region height readings.
//
// Layout hosts report region capacities continuously while content reflows.
// Consecutive readings often differ by sub-pixel rounding or scrollbar
// jitter, and reacting to each of them would rebuild the plan in a loop.
// A [Tracker] keeps the last accepted height per region and only accepts a
// new reading when it leaves the noise band defined by a [Filter].
//
// The band has an absolute and a relative component. A change is treated as
// noise only when it is within BOTH, so small regions (where a few pixels
// matter) still react to small changes:
//
//	f := noise.DefaultFilter()
//	f.ShouldSkipUpdate(980, 979.5) // true: below the minimum difference
//	f.ShouldSkipUpdate(980, 967)   // false: 13px exceeds the absolute band
//	f.ShouldSkipUpdate(100, 98)    // false: 2% exceeds the relative band
package noise

import (
	"math"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Default filter constants, in pixels and fractions of the previous height.
const (
	DefaultMinAbsoluteDiff = 1.0
	DefaultAbsoluteNoise   = 8.0
	DefaultRelativeNoise   = 0.01
)

// Filter holds the noise-band constants.
type Filter struct {
	// MinAbsoluteDiff is the difference below which a reading is always
	// ignored.
	MinAbsoluteDiff float64 `json:"min_absolute_diff" toml:"min_absolute_diff"`
	// AbsoluteNoise is the largest difference, in pixels, still considered
	// noise.
	AbsoluteNoise float64 `json:"absolute_noise" toml:"absolute_noise"`
	// RelativeNoise is the largest difference, as a fraction of the previous
	// height, still considered noise.
	RelativeNoise float64 `json:"relative_noise" toml:"relative_noise"`
}

// DefaultFilter returns the filter used when a document does not override
// the noise constants.
func DefaultFilter() Filter {
	return Filter{
		MinAbsoluteDiff: DefaultMinAbsoluteDiff,
		AbsoluteNoise:   DefaultAbsoluteNoise,
		RelativeNoise:   DefaultRelativeNoise,
	}
}

// WithDefaults fills unset (zero) constants from [DefaultFilter], so a
// document that overrides one constant keeps the others.
func (f Filter) WithDefaults() Filter {
	d := DefaultFilter()
	if f.MinAbsoluteDiff == 0 {
		f.MinAbsoluteDiff = d.MinAbsoluteDiff
	}
	if f.AbsoluteNoise == 0 {
		f.AbsoluteNoise = d.AbsoluteNoise
	}
	if f.RelativeNoise == 0 {
		f.RelativeNoise = d.RelativeNoise
	}
	return f
}

// Validate rejects negative constants and a relative band above 1.
func (f Filter) Validate() error {
	if err := errors.ValidateNonNegative("noise.min_absolute_diff", f.MinAbsoluteDiff); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("noise.absolute_noise", f.AbsoluteNoise); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("noise.relative_noise", f.RelativeNoise); err != nil {
		return err
	}
	if f.RelativeNoise > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "noise.relative_noise must be at most 1, got %g", f.RelativeNoise)
	}
	return nil
}

// ShouldSkipUpdate reports whether next is noise relative to previous.
// A previous value of zero or less means "unset", so the first reading for a
// region is always applied.
func (f Filter) ShouldSkipUpdate(previous, next float64) bool {
	if previous <= 0 {
		return false
	}
	diff := math.Abs(next - previous)
	if diff < f.MinAbsoluteDiff {
		return true
	}
	if diff > f.AbsoluteNoise {
		return false
	}
	return diff <= previous*f.RelativeNoise
}
