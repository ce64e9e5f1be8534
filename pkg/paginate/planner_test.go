package paginate

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate/noise"
)

func testConfig(capacity float64, columns int) Config {
	cfg := DefaultConfig()
	cfg.Columns = columns
	cfg.Region.CapacityHeight = capacity
	return cfg
}

func atomic(id string, index int, h float64) Entry {
	return Entry{ID: id, Index: index, ItemCount: 1, MeasuredHeight: h, Measured: true}
}

func divisible(id string, index, n int, h float64) Entry {
	return Entry{ID: id, Index: index, ItemCount: n, MeasuredHeight: h, Measured: true}
}

func mustPlan(t *testing.T, cfg Config, entries []Entry, opts ...Option) Plan {
	t.Helper()
	p, err := NewPlanner(cfg, opts...)
	require.NoError(t, err)
	plan, err := p.Plan(entries)
	require.NoError(t, err)
	require.NoError(t, plan.Verify(entries))
	return plan
}

func TestPlanner_StacksEntriesWithSpacing(t *testing.T) {
	plan := mustPlan(t, testConfig(800, 1), []Entry{
		atomic("a", 0, 200),
		atomic("b", 1, 200),
		atomic("c", 2, 200),
	})

	require.Len(t, plan.Placements, 3)
	assert.Equal(t, 1, plan.Pages)
	for i, want := range []float64{0, 212, 424} {
		assert.Equal(t, want, plan.Placements[i].TopOffset, "placement %d", i)
		assert.True(t, plan.Placements[i].Items.Whole)
		assert.Equal(t, RegionKey{}, plan.Placements[i].Region)
	}
}

func TestPlanner_MovesAtomicEntryToNextColumn(t *testing.T) {
	plan := mustPlan(t, testConfig(300, 2), []Entry{
		atomic("a", 0, 200),
		atomic("b", 1, 150),
	})

	require.Len(t, plan.Placements, 2)
	assert.Equal(t, RegionKey{Page: 0, Column: 1}, plan.Placements[1].Region)
	assert.Equal(t, 0.0, plan.Placements[1].TopOffset)
	assert.Equal(t, 1, plan.Pages)
}

func TestPlanner_WrapsColumnsIntoPages(t *testing.T) {
	plan := mustPlan(t, testConfig(100, 2), []Entry{
		atomic("a", 0, 80),
		atomic("b", 1, 80),
		atomic("c", 2, 80),
	})

	want := []RegionKey{{0, 0}, {0, 1}, {1, 0}}
	for i, k := range want {
		assert.Equal(t, k, plan.Placements[i].Region)
	}
	assert.Equal(t, 2, plan.Pages)
	assert.Len(t, plan.Regions, 3)
}

func TestPlanner_SplitsDivisibleEntryAfterContent(t *testing.T) {
	plan := mustPlan(t, testConfig(300, 1), []Entry{
		atomic("stats", 0, 100),
		divisible("actions", 1, 5, 250),
	})

	parts := plan.ForEntry("actions")
	require.Len(t, parts, 2)

	assert.Equal(t, Span(0, 3), parts[0].Items)
	assert.Equal(t, 112.0, parts[0].TopOffset)
	assert.Equal(t, 150.0, parts[0].Height)

	assert.Equal(t, Span(3, 5), parts[1].Items)
	assert.Equal(t, RegionKey{Page: 1}, parts[1].Region)
	assert.Equal(t, 0.0, parts[1].TopOffset)
	assert.Equal(t, 100.0, parts[1].Height)

	assert.Equal(t, []string{"actions"}, plan.SplitEntries())
}

func TestPlanner_KeepsWholeWhenNoPrefixFits(t *testing.T) {
	plan := mustPlan(t, testConfig(300, 1), []Entry{
		atomic("stats", 0, 260),
		divisible("actions", 1, 2, 100),
	})

	parts := plan.ForEntry("actions")
	require.Len(t, parts, 1)
	assert.True(t, parts[0].Items.Whole)
	assert.Equal(t, RegionKey{Page: 1}, parts[0].Region)
}

func TestPlanner_NeverSplitsIntoEmptyRegionWhenWholeFits(t *testing.T) {
	cfg := testConfig(300, 1)
	plan := mustPlan(t, cfg, []Entry{divisible("traits", 0, 4, 295)})

	require.Len(t, plan.Placements, 1)
	assert.True(t, plan.Placements[0].Items.Whole)
	assert.False(t, plan.Placements[0].Overflowed)
}

func TestPlanner_BottomThreshold(t *testing.T) {
	entries := []Entry{
		atomic("a", 0, 700),
		atomic("b", 1, 50),
	}

	tests := []struct {
		name      string
		threshold float64
		want      RegionKey
	}{
		{"disabled", 1.0, RegionKey{}},
		{"routes late start to next region", 0.85, RegionKey{Page: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(800, 1)
			cfg.Spacing = 0
			cfg.Region.BottomThresholdFraction = tt.threshold
			plan := mustPlan(t, cfg, entries)
			assert.Equal(t, tt.want, plan.ForEntry("b")[0].Region)
		})
	}
}

func TestPlanner_OverflowsOversizedAtomicEntry(t *testing.T) {
	plan := mustPlan(t, testConfig(300, 1), []Entry{
		atomic("portrait", 0, 500),
		atomic("notes", 1, 100),
	})

	first := plan.ForEntry("portrait")
	require.Len(t, first, 1)
	assert.True(t, first[0].Overflowed)
	assert.Equal(t, RegionKey{}, first[0].Region)

	next := plan.ForEntry("notes")
	require.Len(t, next, 1)
	assert.False(t, next[0].Overflowed)
	assert.Equal(t, RegionKey{Page: 1}, next[0].Region)

	assert.Len(t, plan.Overflowed(), 1)
}

func TestPlanner_OverflowsOneItemAtATime(t *testing.T) {
	e := Entry{
		ID:             "lair",
		ItemCount:      3,
		MeasuredHeight: 900,
		ItemHeights:    []float64{400, 400, 100},
		Measured:       true,
	}
	plan := mustPlan(t, testConfig(300, 1), []Entry{e})

	parts := plan.ForEntry("lair")
	require.Len(t, parts, 3)
	assert.Equal(t, Span(0, 1), parts[0].Items)
	assert.True(t, parts[0].Overflowed)
	assert.Equal(t, Span(1, 2), parts[1].Items)
	assert.True(t, parts[1].Overflowed)
	assert.Equal(t, Span(2, 3), parts[2].Items)
	assert.False(t, parts[2].Overflowed)
	assert.Equal(t, 3, plan.Pages)
}

func TestPlanner_OrdersByIndexThenID(t *testing.T) {
	plan := mustPlan(t, testConfig(1000, 1), []Entry{
		atomic("c", 2, 10),
		atomic("b", 1, 10),
		atomic("a", 1, 10),
		atomic("z", 0, 10),
	})

	var got []string
	for _, pl := range plan.Placements {
		got = append(got, pl.EntryID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, got)
}

func TestPlanner_EmptyInput(t *testing.T) {
	plan := mustPlan(t, testConfig(300, 2), nil)
	assert.Empty(t, plan.Placements)
	assert.Equal(t, 0, plan.Pages)
}

func TestPlanner_RegionOverrides(t *testing.T) {
	cfg := testConfig(300, 1)
	cfg.Overrides = map[RegionKey]RegionConfig{
		{Page: 0, Column: 0}: {CapacityHeight: 100},
	}
	plan := mustPlan(t, cfg, []Entry{atomic("a", 0, 80), atomic("b", 1, 150)})

	assert.Equal(t, RegionKey{}, plan.ForEntry("a")[0].Region)
	assert.Equal(t, RegionKey{Page: 1}, plan.ForEntry("b")[0].Region)
	assert.False(t, plan.ForEntry("b")[0].Overflowed)
	r, ok := plan.Region(RegionKey{})
	require.True(t, ok)
	assert.Equal(t, 100.0, r.CapacityHeight)
	assert.Equal(t, 1.0, r.BottomThresholdFraction)
}

func TestPlanner_SubstitutesLastKnownHeight(t *testing.T) {
	state := NewState(noise.DefaultFilter())
	cfg := testConfig(300, 1)

	mustPlan(t, cfg, []Entry{divisible("actions", 0, 2, 120)}, WithState(state))

	unmeasured := Entry{ID: "actions", ItemCount: 2}
	plan := mustPlan(t, cfg, []Entry{unmeasured}, WithState(state))
	assert.Equal(t, 120.0, plan.Placements[0].Height)

	state.Reset()
	plan = mustPlan(t, cfg, []Entry{unmeasured}, WithState(state))
	assert.Equal(t, 0.0, plan.Placements[0].Height)
}

func TestPlanner_RejectedBatchLeavesStateUntouched(t *testing.T) {
	state := NewState(noise.DefaultFilter())
	cfg := testConfig(300, 1)

	mustPlan(t, cfg, []Entry{divisible("actions", 0, 2, 120)}, WithState(state))

	p, err := NewPlanner(cfg, WithState(state))
	require.NoError(t, err)
	_, err = p.Plan([]Entry{
		divisible("actions", 0, 2, 250),
		atomic("lair", 1, -5),
	})
	require.Error(t, err)

	plan := mustPlan(t, cfg, []Entry{{ID: "actions", ItemCount: 2}}, WithState(state))
	assert.Equal(t, 120.0, plan.Placements[0].Height)
}

func TestPlanner_IgnoresNoisyCapacity(t *testing.T) {
	state := NewState(noise.DefaultFilter())
	entries := []Entry{atomic("a", 0, 100)}

	plan := mustPlan(t, testConfig(980, 1), entries, WithState(state))
	assert.Equal(t, 980.0, plan.Regions[0].CapacityHeight)

	plan = mustPlan(t, testConfig(979.5, 1), entries, WithState(state))
	assert.Equal(t, 980.0, plan.Regions[0].CapacityHeight)

	plan = mustPlan(t, testConfig(967, 1), entries, WithState(state))
	assert.Equal(t, 967.0, plan.Regions[0].CapacityHeight)

	stats := state.Regions().Stats()
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 1, stats.Skipped)
	last, ok := state.Regions().Last(RegionKey{}.String())
	assert.True(t, ok)
	assert.Equal(t, 967.0, last)
}

func TestPlanner_RejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty id", []Entry{atomic("", 0, 10)}},
		{"duplicate id", []Entry{atomic("a", 0, 10), atomic("a", 1, 10)}},
		{"negative height", []Entry{atomic("a", 0, -1)}},
		{"nan height", []Entry{atomic("a", 0, math.NaN())}},
		{"negative item count", []Entry{{ID: "a", ItemCount: -2, MeasuredHeight: 10, Measured: true}}},
		{"bad item height", []Entry{{ID: "a", ItemCount: 2, MeasuredHeight: 10, ItemHeights: []float64{5, math.Inf(1)}, Measured: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlanner(testConfig(300, 1))
			require.NoError(t, err)
			_, err = p.Plan(tt.entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidEntry), "got %v", err)
		})
	}
}

func TestNewPlanner_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.Region.CapacityHeight = 0 }},
		{"negative columns", func(c *Config) { c.Columns = -1 }},
		{"threshold above one", func(c *Config) { c.Region.BottomThresholdFraction = 1.5 }},
		{"negative spacing", func(c *Config) { c.Spacing = -4 }},
		{"infinite capacity", func(c *Config) { c.Region.CapacityHeight = math.Inf(1) }},
		{"override outside grid", func(c *Config) {
			c.Overrides = map[RegionKey]RegionConfig{{Page: 0, Column: 3}: {CapacityHeight: 100}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(300, 2)
			tt.mutate(&cfg)
			_, err := NewPlanner(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}
}

func TestNewPlanner_ZeroThresholdMeansDisabled(t *testing.T) {
	cfg := testConfig(300, 1)
	cfg.Region.BottomThresholdFraction = 0
	p, err := NewPlanner(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Config().Region.BottomThresholdFraction)
}

func TestPlanner_Deterministic(t *testing.T) {
	entries := randomEntries(rand.New(rand.NewPCG(7, 11)), 40)
	cfg := testConfig(600, 2)

	first := mustPlan(t, cfg, entries)
	second := mustPlan(t, cfg, entries)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Plan() mismatch (-first +second):\n%s", diff)
	}

	a, err := MarshalPlan(first)
	require.NoError(t, err)
	b, err := MarshalPlan(second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "serialized plans differ")
}

// TestPlanner_Properties checks coverage, non-overlap and overflow flags over
// many generated inputs.
func TestPlanner_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		cfg := testConfig(100+rng.Float64()*900, 1+rng.IntN(3))
		cfg.Spacing = float64(rng.IntN(20))
		cfg.Region.BottomThresholdFraction = 0.5 + rng.Float64()*0.5
		entries := randomEntries(rng, 1+rng.IntN(30))

		p, err := NewPlanner(cfg)
		require.NoError(t, err)
		plan, err := p.Plan(entries)
		require.NoError(t, err)
		require.NoError(t, plan.Verify(entries), "case %d", i)

		for _, pl := range plan.Placements {
			r, ok := plan.Region(pl.Region)
			require.True(t, ok)
			if pl.Overflowed {
				assert.Equal(t, 0.0, pl.TopOffset, "case %d: overflow must start an empty region", i)
			}
			assert.Equal(t, pl.Bottom() > r.CapacityHeight+eps, pl.Overflowed)
		}
	}
}

func randomEntries(rng *rand.Rand, n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		count := 1 + rng.IntN(6)
		e := Entry{
			ID:        "entry-" + strconv.Itoa(i),
			Index:     i,
			ItemCount: count,
			Measured:  true,
		}
		if rng.IntN(2) == 0 {
			e.ItemHeights = make([]float64, count)
			for j := range e.ItemHeights {
				e.ItemHeights[j] = 10 + rng.Float64()*200
				e.MeasuredHeight += e.ItemHeights[j]
			}
		} else {
			e.MeasuredHeight = 20 + rng.Float64()*600
		}
		entries[i] = e
	}
	return entries
}
