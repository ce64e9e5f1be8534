package sink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

func testPlan(t *testing.T) paginate.Plan {
	t.Helper()
	cfg := paginate.Config{
		Columns: 2,
		Region:  paginate.RegionConfig{CapacityHeight: 300, BottomThresholdFraction: 0.9},
		Spacing: 12,
	}
	p, err := paginate.NewPlanner(cfg)
	require.NoError(t, err)

	plan, err := p.Plan([]paginate.Entry{
		{ID: "stats", Index: 0, ItemCount: 1, MeasuredHeight: 120, Measured: true},
		{ID: "actions", Index: 1, ItemCount: 4, MeasuredHeight: 240, ItemHeights: []float64{60, 60, 60, 60}, Measured: true},
		{ID: "lair", Index: 2, ItemCount: 1, MeasuredHeight: 420, Measured: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Overflowed(), "fixture needs an overflowed placement")
	return plan
}

func TestRenderJSON(t *testing.T) {
	plan := testPlan(t)
	data, err := RenderJSON(plan)
	require.NoError(t, err)

	back, err := paginate.UnmarshalPlan(data)
	require.NoError(t, err)
	assert.Equal(t, plan.Placements, back.Placements)
}

func TestRenderSVG(t *testing.T) {
	plan := testPlan(t)
	svg := string(RenderSVG(plan,
		WithLabels(map[string]string{"stats": "Goblin <Boss>"}),
		WithThresholdLines(),
	))

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
	assert.Equal(t, plan.Pages, strings.Count(svg, `class="page"`))
	assert.Equal(t, len(plan.Placements), strings.Count(svg, `data-entry=`))
	assert.Contains(t, svg, `class="placement overflowed"`)
	assert.Contains(t, svg, `class="threshold"`)
	assert.Contains(t, svg, "Goblin &lt;Boss&gt;")
	assert.Contains(t, svg, "actions (1-2 of 4)")
}

func TestRenderSVG_NoThresholdWhenFull(t *testing.T) {
	plan := testPlan(t)
	for i := range plan.Regions {
		plan.Regions[i].BottomThresholdFraction = 1
	}
	svg := string(RenderSVG(plan, WithThresholdLines()))
	assert.NotContains(t, svg, `class="threshold"`)
}

func TestRenderSVG_ColumnWidth(t *testing.T) {
	plan := paginate.Plan{Columns: 1, Pages: 0}
	svg := string(RenderSVG(plan, WithColumnWidth(100), WithGutter(0)))
	assert.Contains(t, svg, `viewBox="0 0 164.0 0.0"`)
}

func TestRenderPDF(t *testing.T) {
	plan := testPlan(t)
	data, err := RenderPDF(plan, WithPDFTitle("Goblin"), WithPDFThresholdLines())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.GreaterOrEqual(t, bytes.Count(data, []byte("/Type /Page")), plan.Pages)
}

func TestRenderPDF_Empty(t *testing.T) {
	data, err := RenderPDF(paginate.Plan{Columns: 1})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderXLSX(t *testing.T) {
	plan := testPlan(t)
	report := &measure.Report{
		Width: 320,
		Entries: []measure.Diagnostic{
			{EntryID: "stats", Estimated: 120, Rendered: 110, Error: 10, RelativeError: 10.0 / 110, Drift: 10},
		},
		Skipped: []string{"lair"},
	}

	data, err := RenderXLSX(plan,
		WithXLSXLabels(map[string]string{"stats": "Goblin"}),
		WithDriftReport(report),
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPlacements, SheetRegions, SheetDrift}, f.GetSheetList())

	rows, err := f.GetRows(SheetPlacements)
	require.NoError(t, err)
	require.Len(t, rows, len(plan.Placements)+1)
	assert.Equal(t, "Entry", rows[0][0])
	assert.Equal(t, "stats", rows[1][0])
	assert.Equal(t, "Goblin", rows[1][1])

	regions, err := f.GetRows(SheetRegions)
	require.NoError(t, err)
	assert.Len(t, regions, len(plan.Regions)+1)

	drift, err := f.GetRows(SheetDrift)
	require.NoError(t, err)
	assert.Equal(t, "stats", drift[1][0])
	assert.Equal(t, "lair", drift[len(drift)-1][1])
}

func TestRenderXLSX_NoReport(t *testing.T) {
	data, err := RenderXLSX(testPlan(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetPlacements, SheetRegions}, f.GetSheetList())
}
