package measure

import (
	"context"
	"slices"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Static reports heights recorded in the descriptor by an off-screen render.
// Recorded heights are only valid at the width they were rendered at.
type Static struct{}

// Measure returns the recorded height. It returns ErrNotMeasured when there
// is none, wrapped with ErrCodeWidthMismatch when the heights were recorded
// at a width other than width.
func (Static) Measure(ctx context.Context, d Descriptor, width float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if d.MeasuredWidth > 0 && !SameWidth(d.MeasuredWidth, width) {
		return Result{}, errors.Wrap(errors.ErrCodeWidthMismatch, ErrNotMeasured,
			"entry %s recorded at width %g, not %g", d.ID, d.MeasuredWidth, width)
	}
	if d.Height == nil {
		if len(d.ItemHeights) == 0 {
			return Result{}, errors.Wrap(errors.ErrCodeMeasurementUnavailable, ErrNotMeasured, "entry %s", d.ID)
		}
		var total float64
		for _, h := range d.ItemHeights {
			total += h
		}
		return Result{Height: total, ItemHeights: slices.Clone(d.ItemHeights)}, nil
	}
	return Result{Height: *d.Height, ItemHeights: slices.Clone(d.ItemHeights)}, nil
}

var _ Provider = Static{}
