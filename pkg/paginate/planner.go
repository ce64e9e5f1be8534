package paginate

import (
	"cmp"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate/noise"
)

// Option configures a Planner.
type Option func(*Planner)

// WithState shares a State across planning passes so that region readings
// are filtered and unmeasured entries can fall back to earlier measurements.
func WithState(s *State) Option {
	return func(p *Planner) {
		if s != nil {
			p.state = s
		}
	}
}

// WithLogger sets the logger used for warnings about substituted heights and
// overflowing placements.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// Planner assigns measured entries to regions.
//
// Planning is a pure function of the entries, the configuration and the
// planner state: the same inputs always produce the same plan.
type Planner struct {
	cfg    Config
	state  *State
	logger *log.Logger
}

// NewPlanner validates cfg and returns a planner. The configuration is
// copied, so later changes to cfg do not affect the planner.
func NewPlanner(cfg Config, opts ...Option) (*Planner, error) {
	cfg = cfg.clone()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.state == nil {
		p.state = NewState(noise.DefaultFilter())
	}
	return p, nil
}

// Config returns the planner's configuration.
func (p *Planner) Config() Config {
	return p.cfg.clone()
}

// State returns the planner's state.
func (p *Planner) State() *State {
	return p.state
}

// Plan places every entry, in (Index, ID) order, and returns the result.
//
// Entries that do not fit the remaining space of a region are moved whole to
// the next region, or split at an item boundary when the region already holds
// content. An entry that does not fit even an empty region is placed anyway
// and flagged as overflowed, so planning always terminates and never drops
// content.
func (p *Planner) Plan(entries []Entry) (Plan, error) {
	ordered, err := p.prepare(entries)
	if err != nil {
		return Plan{}, err
	}

	b := &builder{cfg: p.cfg, state: p.state, logger: p.logger}
	for _, e := range ordered {
		b.place(e)
	}
	plan := b.result()

	p.logger.Debug("planned entries",
		"entries", len(ordered),
		"placements", len(plan.Placements),
		"pages", plan.Pages,
		"overflowed", len(plan.Overflowed()))
	return plan, nil
}

// prepare validates entries, substitutes missing measurements and sorts.
func (p *Planner) prepare(entries []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		if err := errors.ValidateEntryID(e.ID); err != nil {
			return nil, err
		}
		if _, dup := seen[e.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidEntry, "duplicate entry id %q", e.ID)
		}
		seen[e.ID] = struct{}{}

		if e.ItemCount < 0 {
			return nil, errors.New(errors.ErrCodeInvalidEntry, "entry %s: negative item count %d", e.ID, e.ItemCount)
		}
		if e.ItemCount == 0 {
			e.ItemCount = 1
		}

		if !e.Measured {
			recalled, ok := p.state.recall(e)
			if ok {
				e = recalled
				p.logger.Warn("measurement unavailable, using last known height",
					"entry", e.ID, "height", e.MeasuredHeight)
			} else {
				e.MeasuredHeight = 0
				e.ItemHeights = nil
				p.logger.Warn("measurement unavailable, placing with zero height", "entry", e.ID)
			}
		}

		if !finite(e.MeasuredHeight) || e.MeasuredHeight < 0 {
			return nil, errors.New(errors.ErrCodeInvalidEntry, "entry %s: invalid height %v", e.ID, e.MeasuredHeight)
		}
		for i, h := range e.ItemHeights {
			if !finite(h) || h < 0 {
				return nil, errors.New(errors.ErrCodeInvalidEntry, "entry %s: invalid height %v for item %d", e.ID, h, i)
			}
		}

		out = append(out, e)
	}

	// Only a batch that validated completely updates the state.
	for _, e := range out {
		if e.Measured {
			p.state.remember(e)
		}
	}

	slices.SortStableFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// regionCursor is the running fill state of one region.
type regionCursor struct {
	region Region
	cursor float64
	count  int
}

func (rc *regionCursor) available() float64 {
	return rc.region.CapacityHeight - rc.cursor
}

func (rc *regionCursor) late() bool {
	return rc.cursor > rc.region.ThresholdLine()+eps
}

// builder holds the mutable state of one planning pass.
type builder struct {
	cfg    Config
	state  *State
	logger *log.Logger

	regions    []*regionCursor
	current    int
	placements []Placement
}

// region returns the cursor for the region at index, opening regions on
// demand.
func (b *builder) region(index int) *regionCursor {
	for len(b.regions) <= index {
		b.regions = append(b.regions, b.open(len(b.regions)))
	}
	return b.regions[index]
}

// open creates a region, passing its configured capacity through the noise
// filter so that jitter in reported heights does not change the plan.
func (b *builder) open(index int) *regionCursor {
	r := b.cfg.RegionAt(b.cfg.KeyAt(index))
	reading := noise.Sample{Key: r.Key.String(), Height: r.CapacityHeight, Source: noise.SourceRendered}
	accepted, applied := b.state.regions.ObserveSample(reading)
	if !applied {
		b.logger.Debug("region height within noise band",
			"region", reading.Key, "reported", reading.Height, "kept", accepted)
	}
	r.CapacityHeight = accepted
	return &regionCursor{region: r}
}

// place assigns every item of e, advancing through regions as needed.
func (b *builder) place(e Entry) {
	n := e.count()
	start := 0
	for start < n {
		rc := b.region(b.current)
		h := e.SliceHeight(start, n)
		available := rc.available()

		if h+b.cfg.Spacing <= available+eps && !rc.late() {
			b.put(rc, e, start, n, h)
			return
		}

		if rc.count > 0 {
			if n-start > 1 {
				k := Split(e, b.splitRequest(rc, start))
				if k > 0 {
					b.put(rc, e, start, start+k, e.SliceHeight(start, start+k))
					start += k
				}
			}
			b.current++
			continue
		}

		// Empty region: always make progress.
		end := n
		if n-start > 1 && h > available+eps {
			k := Split(e, b.splitRequest(rc, start))
			end = start + max(k, 1)
		}
		b.put(rc, e, start, end, e.SliceHeight(start, end))
		start = end
		if start < n {
			b.current++
		}
	}
}

func (b *builder) splitRequest(rc *regionCursor, start int) SplitRequest {
	return SplitRequest{
		Start:     start,
		Available: rc.available(),
		Spacing:   b.cfg.Spacing,
		Offset:    rc.cursor,
		Threshold: rc.region.ThresholdLine(),
	}
}

// put records a placement at the region's cursor and advances it.
func (b *builder) put(rc *regionCursor, e Entry, start, end int, h float64) {
	n := e.count()
	items := Span(start, end)
	if start == 0 && end == n {
		items = WholeRange()
	}
	pl := Placement{
		EntryID:    e.ID,
		Region:     rc.region.Key,
		Items:      items,
		ItemCount:  n,
		TopOffset:  rc.cursor,
		Height:     h,
		Overflowed: overflows(rc.cursor, h, rc.region.CapacityHeight),
	}
	if pl.Overflowed {
		b.logger.Warn("placement overflows region",
			"entry", e.ID,
			"region", rc.region.Key.String(),
			"items", items.String(),
			"bottom", pl.Bottom(),
			"capacity", rc.region.CapacityHeight)
	}
	rc.cursor += h + b.cfg.Spacing
	rc.count++
	b.placements = append(b.placements, pl)
}

func (b *builder) result() Plan {
	plan := Plan{
		Columns:    b.cfg.Columns,
		Spacing:    b.cfg.Spacing,
		Regions:    make([]Region, 0, len(b.regions)),
		Placements: b.placements,
	}
	if plan.Placements == nil {
		plan.Placements = []Placement{}
	}
	for _, rc := range b.regions {
		plan.Regions = append(plan.Regions, rc.region)
		plan.Pages = max(plan.Pages, rc.region.Key.Page+1)
	}
	return plan
}
