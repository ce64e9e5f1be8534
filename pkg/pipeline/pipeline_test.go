package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/document"
	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"svg", false},
		{"pdf", false},
		{"xlsx", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "xlsx"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "png"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateSource(t *testing.T) {
	assert.NoError(t, ValidateSource(SourceEstimate))
	assert.NoError(t, ValidateSource(SourceRendered))

	err := ValidateSource("dom")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidSource))
}

func TestOptions_Defaults(t *testing.T) {
	var opts Options
	require.NoError(t, opts.ValidateForMeasure())
	assert.Equal(t, DefaultSource, opts.Source)
	assert.Equal(t, []string{FormatSVG}, opts.Formats)
	assert.NotNil(t, opts.Logger)

	assert.Equal(t, 320.0, opts.MeasureWidth(320))
	opts.Width = 280
	assert.Equal(t, 280.0, opts.MeasureWidth(320))

	bad := Options{Width: -1}
	assert.True(t, errors.Is(bad.ValidateForMeasure(), errors.ErrCodeInvalidConfig))
}

const recordedDoc = `{
  "title": "Goblin",
  "layout": {"columns": 2, "width": 320, "capacity": 300, "spacing": 12},
  "entries": [
    {"id": "stats", "title": "Goblin", "height": 120},
    {"id": "actions", "title": "Actions", "items": ["a", "b", "c", "d"], "item_heights": [60, 60, 60, 60]},
    {"id": "lair", "height": 420}
  ]
}`

func readDoc(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Read(strings.NewReader(src), document.FormatJSON)
	require.NoError(t, err)
	return doc
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, log.NewWithOptions(&bytes.Buffer{}, log.Options{}))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRunner_Execute(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)
	opts := Options{Source: SourceRendered, Formats: []string{FormatJSON, FormatSVG}, Labels: true}

	res, err := r.Execute(context.Background(), doc, opts)
	require.NoError(t, err)

	assert.False(t, res.CacheInfo.MeasureHit)
	assert.False(t, res.CacheInfo.RenderHit)
	assert.Equal(t, 3, res.Stats.Entries)
	assert.Equal(t, 2, res.Stats.Pages)
	assert.Equal(t, 1, res.Stats.Overflowed)
	assert.Equal(t, []string{"stats", "actions", "actions", "lair"}, entryIDs(res.Plan))
	assert.Contains(t, string(res.Artifacts[FormatSVG]), "Goblin")

	back, err := paginate.UnmarshalPlan(res.Artifacts[FormatJSON])
	require.NoError(t, err)
	assert.Equal(t, res.Plan.Placements, back.Placements)

	again, err := r.Execute(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.True(t, again.CacheInfo.MeasureHit)
	assert.True(t, again.CacheInfo.RenderHit)
	assert.Equal(t, res.Plan, again.Plan)
	assert.Equal(t, res.Artifacts, again.Artifacts)
}

func TestRunner_Refresh(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)

	_, hit, err := r.MeasureWithCacheInfo(context.Background(), doc, Options{Source: SourceRendered})
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = r.MeasureWithCacheInfo(context.Background(), doc, Options{Source: SourceRendered, Refresh: true})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRunner_EstimateSource(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)

	snap, err := r.Measure(context.Background(), doc, Options{Source: SourceEstimate})
	require.NoError(t, err)
	assert.Equal(t, SourceEstimate, snap.Source)
	assert.Empty(t, snap.Missing)
	for _, e := range snap.Entries {
		assert.True(t, e.Measured, e.ID)
		assert.Greater(t, e.MeasuredHeight, 0.0, e.ID)
	}
}

func TestRunner_SubstitutesFromPreviousRun(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{Source: SourceRendered, Formats: []string{FormatJSON}}

	first, err := r.Execute(context.Background(), readDoc(t, recordedDoc), opts)
	require.NoError(t, err)

	// The same document without a recorded height for "stats".
	edited := strings.Replace(recordedDoc, `{"id": "stats", "title": "Goblin", "height": 120}`, `{"id": "stats", "title": "Goblin"}`, 1)
	second, err := r.Execute(context.Background(), readDoc(t, edited), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, second.Stats.Missing)
	assert.Equal(t, first.Plan.Placements, second.Plan.Placements)
}

func TestRunner_StateFollowsFilter(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)
	snap, err := r.Measure(context.Background(), doc, Options{Source: SourceRendered})
	require.NoError(t, err)

	_, err = r.Plan(context.Background(), doc, snap, Options{})
	require.NoError(t, err)
	state := r.State
	require.NotNil(t, state)

	_, err = r.Plan(context.Background(), doc, snap, Options{})
	require.NoError(t, err)
	assert.Same(t, state, r.State)

	noisy := readDoc(t, strings.Replace(recordedDoc, `"spacing": 12}`,
		`"spacing": 12, "noise": {"min_absolute_diff": 2, "absolute_noise": 20, "relative_noise": 0.05}}`, 1))
	_, err = r.Plan(context.Background(), noisy, snap, Options{})
	require.NoError(t, err)
	assert.NotSame(t, state, r.State)
}

func TestRunner_Diagnose(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)

	report, err := r.Diagnose(context.Background(), doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 320.0, report.Width)
	assert.Len(t, report.Entries, 3)
	assert.Empty(t, report.Skipped)
}

func TestRunner_RecordedHeightsHoldOnlyAtTheirWidth(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)

	snap, err := r.Measure(context.Background(), doc, Options{Source: SourceRendered, Width: 100})
	require.NoError(t, err)
	assert.Equal(t, 320.0, snap.Width)
	assert.ElementsMatch(t, []string{"stats", "actions", "lair"}, snap.Missing)
	for _, e := range snap.Entries {
		assert.False(t, e.Measured, "entry %s", e.ID)
	}

	_, err = r.Diagnose(context.Background(), doc, Options{Width: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeWidthMismatch), "got %v", err)
}

func TestRunner_RenderWithReport(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)
	res, err := r.Execute(context.Background(), doc, Options{Source: SourceRendered, Formats: []string{FormatXLSX}})
	require.NoError(t, err)

	report, err := r.Diagnose(context.Background(), doc, Options{})
	require.NoError(t, err)

	withReport, hit, err := r.RenderWithCacheInfo(context.Background(), res.Plan,
		RenderInput{Report: &report}, Options{Formats: []string{FormatXLSX}})
	require.NoError(t, err)
	assert.False(t, hit, "a report changes the artifact key")
	assert.NotEqual(t, res.Artifacts[FormatXLSX], withReport[FormatXLSX])
}

func TestRunner_InvalidOptions(t *testing.T) {
	r := newTestRunner(t)
	doc := readDoc(t, recordedDoc)

	_, err := r.Execute(context.Background(), doc, Options{Source: "dom"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidSource))

	_, err = r.Execute(context.Background(), doc, Options{Formats: []string{"png"}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestRunner_CancelledContext(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Measure(ctx, readDoc(t, recordedDoc), Options{Source: SourceRendered})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_SupersedeIdle(t *testing.T) {
	r := newTestRunner(t)
	r.Supersede()
	r.ResetState()

	_, err := r.Measure(context.Background(), readDoc(t, recordedDoc), Options{Source: SourceRendered})
	assert.NoError(t, err)
}

func entryIDs(p paginate.Plan) []string {
	out := make([]string, len(p.Placements))
	for i, pl := range p.Placements {
		out[i] = pl.EntryID
	}
	return out
}

func TestRunner_CloseReportsUncachedWork(t *testing.T) {
	var buf bytes.Buffer
	nc := cache.NewNullCache()
	r := NewRunner(nc, nil, log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))

	_, err := r.Measure(context.Background(), readDoc(t, recordedDoc), Options{Source: SourceRendered})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.Equal(t, int64(1), nc.Stats().Lookups)
	assert.Positive(t, nc.Stats().DroppedBytes)
	assert.Contains(t, buf.String(), "caching disabled")
}
