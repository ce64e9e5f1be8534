package noise

// Measurement sources reported with a [Sample].
const (
	SourceEstimate = "estimate"
	SourceRendered = "rendered"
)

// Sample is a single height reading for a keyed region or entry.
type Sample struct {
	Key    string  `json:"key"`
	Height float64 `json:"height"`
	Source string  `json:"source"`
}

// Stats counts tracker decisions since construction or the last Reset.
type Stats struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Tracker remembers the last accepted height per key.
//
// A Tracker is owned by a single planner state and is not safe for
// concurrent use.
type Tracker struct {
	filter Filter
	last   map[string]float64
	stats  Stats
}

// NewTracker creates a tracker using filter.
func NewTracker(filter Filter) *Tracker {
	return &Tracker{
		filter: filter,
		last:   make(map[string]float64),
	}
}

// Filter returns the filter the tracker was created with.
func (t *Tracker) Filter() Filter {
	return t.filter
}

// Observe records a reading for key. It returns the height that callers
// should use and whether next was accepted. When the reading is noise the
// previously accepted height is returned unchanged.
func (t *Tracker) Observe(key string, next float64) (float64, bool) {
	prev := t.last[key]
	if t.filter.ShouldSkipUpdate(prev, next) {
		t.stats.Skipped++
		return prev, false
	}
	t.last[key] = next
	t.stats.Applied++
	return next, true
}

// ObserveSample is Observe for a [Sample].
func (t *Tracker) ObserveSample(s Sample) (float64, bool) {
	return t.Observe(s.Key, s.Height)
}

// Last returns the last accepted height for key.
func (t *Tracker) Last(key string) (float64, bool) {
	h, ok := t.last[key]
	return h, ok
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return len(t.last)
}

// Stats returns a copy of the decision counters.
func (t *Tracker) Stats() Stats {
	return t.stats
}

// Reset forgets every accepted height. The next reading per key is applied
// unconditionally.
func (t *Tracker) Reset() {
	clear(t.last)
	t.stats = Stats{}
}

// Close releases the tracker's memory. A closed tracker behaves like a
// freshly reset one.
func (t *Tracker) Close() error {
	t.last = make(map[string]float64)
	t.stats = Stats{}
	return nil
}
