package measure

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Diagnostic compares the two height sources for one entry.
type Diagnostic struct {
	EntryID   string  `json:"entry_id"`
	Estimated float64 `json:"estimated"`
	Rendered  float64 `json:"rendered"`
	// Error is Estimated minus Rendered.
	Error float64 `json:"error"`
	// RelativeError is Error divided by Rendered, zero when Rendered is zero.
	RelativeError float64 `json:"relative_error"`
	// Drift is the running sum of Error up to and including this entry.
	Drift float64 `json:"drift"`
}

// Report summarizes estimate drift over a document.
type Report struct {
	Width   float64      `json:"width"`
	Entries []Diagnostic `json:"entries"`
	// Skipped lists entries missing from either snapshot.
	Skipped []string `json:"skipped,omitempty"`

	MeanError    float64 `json:"mean_error"`
	StdDevError  float64 `json:"stddev_error"`
	MeanAbsError float64 `json:"mean_abs_error"`
	MaxAbsError  float64 `json:"max_abs_error"`
	// Drift is the total accumulated error across all entries.
	Drift float64 `json:"drift"`
}

// Compare reports how far the estimated heights are from the rendered
// ones. Both snapshots must have been taken at the same width. The report
// is informational; the planner never reads it.
func Compare(estimate, rendered *Snapshot) (Report, error) {
	if estimate == nil || rendered == nil {
		return Report{}, errors.New(errors.ErrCodeInvalidInput, "compare needs two snapshots")
	}
	if !SameWidth(estimate.Width, rendered.Width) {
		return Report{}, errors.New(errors.ErrCodeWidthMismatch,
			"estimate width %g differs from rendered width %g", estimate.Width, rendered.Width)
	}

	report := Report{Width: estimate.Width}
	var errs []float64
	for _, est := range estimate.Entries {
		ren, ok := rendered.Entry(est.ID)
		if !ok || !est.Measured || !ren.Measured {
			report.Skipped = append(report.Skipped, est.ID)
			continue
		}
		d := Diagnostic{
			EntryID:   est.ID,
			Estimated: est.MeasuredHeight,
			Rendered:  ren.MeasuredHeight,
			Error:     est.MeasuredHeight - ren.MeasuredHeight,
		}
		if ren.MeasuredHeight > 0 {
			d.RelativeError = d.Error / ren.MeasuredHeight
		}
		report.Entries = append(report.Entries, d)
		errs = append(errs, d.Error)
	}

	if len(errs) == 0 {
		return report, nil
	}

	drift := floats.CumSum(make([]float64, len(errs)), errs)
	for i := range report.Entries {
		report.Entries[i].Drift = drift[i]
	}
	report.Drift = drift[len(drift)-1]

	if len(errs) > 1 {
		report.MeanError, report.StdDevError = stat.MeanStdDev(errs, nil)
	} else {
		report.MeanError = errs[0]
	}

	abs := make([]float64, len(errs))
	for i, e := range errs {
		abs[i] = math.Abs(e)
	}
	report.MeanAbsError = stat.Mean(abs, nil)
	report.MaxAbsError = floats.Max(abs)
	return report, nil
}
