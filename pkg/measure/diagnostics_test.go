package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

func snapshot(width float64, heights map[string]float64, order ...string) *Snapshot {
	s := &Snapshot{Width: width}
	for i, id := range order {
		h, ok := heights[id]
		s.Entries = append(s.Entries, paginate.Entry{
			ID: id, Index: i, ItemCount: 1, MeasuredHeight: h, Measured: ok,
		})
	}
	return s
}

func TestCompare(t *testing.T) {
	est := snapshot(320, map[string]float64{"a": 110, "b": 90, "c": 100}, "a", "b", "c", "d")
	ren := snapshot(320, map[string]float64{"a": 100, "b": 100, "c": 100, "d": 50}, "a", "b", "c", "d")

	r, err := Compare(est, ren)
	require.NoError(t, err)

	require.Len(t, r.Entries, 3)
	assert.Equal(t, []string{"d"}, r.Skipped)

	assert.Equal(t, 10.0, r.Entries[0].Error)
	assert.InDelta(t, 0.1, r.Entries[0].RelativeError, 1e-12)
	assert.Equal(t, -10.0, r.Entries[1].Error)

	var drift []float64
	for _, d := range r.Entries {
		drift = append(drift, d.Drift)
	}
	assert.Equal(t, []float64{10, 0, 0}, drift)

	assert.InDelta(t, 0, r.MeanError, 1e-12)
	assert.InDelta(t, 10, r.StdDevError, 1e-12)
	assert.InDelta(t, 20.0/3, r.MeanAbsError, 1e-12)
	assert.Equal(t, 10.0, r.MaxAbsError)
	assert.Equal(t, 0.0, r.Drift)
}

func TestCompare_SingleEntry(t *testing.T) {
	r, err := Compare(
		snapshot(320, map[string]float64{"a": 130}, "a"),
		snapshot(320, map[string]float64{"a": 100}, "a"),
	)
	require.NoError(t, err)
	assert.Equal(t, 30.0, r.MeanError)
	assert.Equal(t, 0.0, r.StdDevError)
	assert.Equal(t, 30.0, r.Drift)
}

func TestCompare_NoOverlap(t *testing.T) {
	r, err := Compare(
		snapshot(320, map[string]float64{}, "a"),
		snapshot(320, map[string]float64{"a": 100}, "a"),
	)
	require.NoError(t, err)
	assert.Empty(t, r.Entries)
	assert.Equal(t, []string{"a"}, r.Skipped)
}

func TestCompare_WidthMismatch(t *testing.T) {
	_, err := Compare(snapshot(320, nil), snapshot(300, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeWidthMismatch))

	_, err = Compare(nil, snapshot(300, nil))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
