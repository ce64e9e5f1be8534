package paginate

import "github.com/matzehuels/sheetflow/pkg/paginate/noise"

// measurement is the last good reading for an entry.
type measurement struct {
	itemCount   int
	height      float64
	itemHeights []float64
}

// State carries information between planning passes over the same content:
// accepted region capacities and the last good measurement of each entry.
//
// A State is created once per document, reset when the content changes, and
// closed when the document goes away. It is owned by one planner at a time
// and is not safe for concurrent use.
type State struct {
	regions *noise.Tracker
	last    map[string]measurement
}

// NewState creates an empty state whose region readings pass through filter.
func NewState(filter noise.Filter) *State {
	return &State{
		regions: noise.NewTracker(filter),
		last:    make(map[string]measurement),
	}
}

// Regions exposes the region height tracker.
func (s *State) Regions() *noise.Tracker {
	return s.regions
}

// Reset forgets accepted capacities and remembered measurements.
func (s *State) Reset() {
	s.regions.Reset()
	clear(s.last)
}

// Close releases the state.
func (s *State) Close() error {
	clear(s.last)
	return s.regions.Close()
}

// remember stores a measured entry for later substitution.
func (s *State) remember(e Entry) {
	s.last[e.ID] = measurement{
		itemCount:   e.ItemCount,
		height:      e.MeasuredHeight,
		itemHeights: append([]float64(nil), e.ItemHeights...),
	}
}

// recall fills an unmeasured entry from the last good measurement with the
// same item count. It reports whether a measurement was found.
func (s *State) recall(e Entry) (Entry, bool) {
	m, ok := s.last[e.ID]
	if !ok || m.itemCount != e.ItemCount {
		return e, false
	}
	e.MeasuredHeight = m.height
	e.ItemHeights = append([]float64(nil), m.itemHeights...)
	return e, true
}
