package measure

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/paginate"
)

// ErrSuperseded is returned by a measurement pass that was replaced by a
// newer one before it finished.
var ErrSuperseded = errors.New(errors.ErrCodeSuperseded, "measurement pass superseded")

// Snapshot is the complete result of one measurement pass. Planning starts
// only once a snapshot exists, so every entry has been measured (or marked
// unavailable) before any placement is decided.
type Snapshot struct {
	ID      string           `json:"id"`
	Source  string           `json:"source"`
	// Width is the column width the heights hold for. Rendered snapshots
	// carry the width the document's heights were recorded at.
	Width   float64          `json:"width"`
	Entries []paginate.Entry `json:"entries"`
	Missing []string         `json:"missing,omitempty"`
}

// Entry returns the measured entry with the given ID.
func (s *Snapshot) Entry(id string) (paginate.Entry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return paginate.Entry{}, false
}

// MarshalSnapshot serializes a snapshot for caching.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot deserializes a cached snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal snapshot")
	}
	return &s, nil
}

// Measurer runs a Provider over every descriptor of a document.
//
// Starting a new pass, or calling Supersede, cancels the pass in flight; the
// cancelled pass returns ErrSuperseded and its partial results are dropped.
// Measurer is safe for concurrent use.
type Measurer struct {
	provider Provider
	source   string
	logger   *log.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewMeasurer creates a measurer. source labels its snapshots
// (noise.SourceEstimate or noise.SourceRendered).
func NewMeasurer(p Provider, source string, logger *log.Logger) *Measurer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Measurer{provider: p, source: source, logger: logger}
}

// Source returns the label of the measurer's provider.
func (m *Measurer) Source() string {
	return m.source
}

// Measure measures every descriptor at width and returns the snapshot.
//
// Provider failures do not abort the pass: the entry is recorded as
// unmeasured and listed in Snapshot.Missing, and the planner substitutes a
// height for it.
func (m *Measurer) Measure(ctx context.Context, width float64, descs []Descriptor) (*Snapshot, error) {
	ctx, gen, cancel := m.begin(ctx)
	defer cancel()

	snap := &Snapshot{
		ID:      uuid.NewString(),
		Source:  m.source,
		Width:   width,
		Entries: make([]paginate.Entry, 0, len(descs)),
	}

	for _, d := range descs {
		if err := m.check(ctx, gen); err != nil {
			return nil, err
		}

		e := paginate.Entry{ID: d.ID, Index: d.Index, ItemCount: d.ItemCount()}
		r, err := m.provider.Measure(ctx, d, width)
		if err != nil {
			if err := m.check(ctx, gen); err != nil {
				return nil, err
			}
			m.logger.Warn("measurement unavailable", "entry", d.ID, "source", m.source, "err", err)
			snap.Missing = append(snap.Missing, d.ID)
			snap.Entries = append(snap.Entries, e)
			continue
		}

		e.MeasuredHeight = r.Height
		e.Measured = true
		if len(r.ItemHeights) == e.ItemCount {
			e.ItemHeights = r.ItemHeights
		} else if len(r.ItemHeights) > 0 {
			m.logger.Debug("ignoring item heights of wrong length",
				"entry", d.ID, "items", e.ItemCount, "heights", len(r.ItemHeights))
		}
		snap.Entries = append(snap.Entries, e)
	}

	if err := m.check(ctx, gen); err != nil {
		return nil, err
	}
	return snap, nil
}

// Supersede cancels the pass in flight, if any.
func (m *Measurer) Supersede() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// begin starts a new generation, cancelling the previous one.
func (m *Measurer) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	return ctx, m.gen, cancel
}

// check reports ErrSuperseded for stale generations and the parent's error
// when the caller cancelled.
func (m *Measurer) check(ctx context.Context, gen uint64) error {
	m.mu.Lock()
	stale := m.gen != gen
	m.mu.Unlock()
	if stale {
		return ErrSuperseded
	}
	return ctx.Err()
}
