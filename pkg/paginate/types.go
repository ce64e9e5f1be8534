package paginate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// eps absorbs floating point error when comparing heights.
const eps = 1e-9

// =============================================================================
// Entry - measured content block
// =============================================================================

// Entry is one logical content block with its measured heights.
//
// Entries are value snapshots: a new measurement produces a new Entry. An
// Entry with ItemCount 1 is atomic; larger counts are divisible at item
// boundaries.
type Entry struct {
	ID    string `json:"id"`
	Index int    `json:"index"`

	// ItemCount is the number of indivisible items in the entry.
	ItemCount int `json:"item_count"`

	// MeasuredHeight is the rendered height of the whole entry.
	MeasuredHeight float64 `json:"measured_height"`

	// ItemHeights holds per-item heights when the provider reports them.
	// When absent or of the wrong length, slices use the uniform average
	// MeasuredHeight / ItemCount.
	ItemHeights []float64 `json:"item_heights,omitempty"`

	// Measured is false when the provider could not supply a height.
	Measured bool `json:"measured"`
}

// Divisible reports whether the entry may be split across regions.
func (e Entry) Divisible() bool {
	return e.ItemCount > 1
}

// PerItemHeight returns the uniform average item height.
func (e Entry) PerItemHeight() float64 {
	if e.ItemCount <= 0 {
		return e.MeasuredHeight
	}
	return e.MeasuredHeight / float64(e.ItemCount)
}

// SliceHeight returns the height of items [start, end).
//
// The whole range always reports MeasuredHeight so that entry-level chrome
// (headings, borders) is not lost to per-item rounding.
func (e Entry) SliceHeight(start, end int) float64 {
	n := e.count()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if end <= start {
		return 0
	}
	if start == 0 && end == n {
		return e.MeasuredHeight
	}
	if len(e.ItemHeights) == n {
		var h float64
		for _, ih := range e.ItemHeights[start:end] {
			h += ih
		}
		return h
	}
	return e.PerItemHeight() * float64(end-start)
}

// count treats a zero ItemCount as a single atomic item.
func (e Entry) count() int {
	if e.ItemCount < 1 {
		return 1
	}
	return e.ItemCount
}

// =============================================================================
// RegionKey - (page, column) address
// =============================================================================

// RegionKey addresses a region by page and column. Its text form is
// "page:column".
type RegionKey struct {
	Page   int `json:"page"`
	Column int `json:"column"`
}

// String returns the "page:column" form.
func (k RegionKey) String() string {
	return strconv.Itoa(k.Page) + ":" + strconv.Itoa(k.Column)
}

// Less orders keys page-major.
func (k RegionKey) Less(o RegionKey) bool {
	if k.Page != o.Page {
		return k.Page < o.Page
	}
	return k.Column < o.Column
}

// ParseRegionKey parses the "page:column" form.
func ParseRegionKey(s string) (RegionKey, error) {
	p, c, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return RegionKey{}, fmt.Errorf("region key %q: want page:column", s)
	}
	page, err := strconv.Atoi(p)
	if err != nil || page < 0 {
		return RegionKey{}, fmt.Errorf("region key %q: invalid page", s)
	}
	col, err := strconv.Atoi(c)
	if err != nil || col < 0 {
		return RegionKey{}, fmt.Errorf("region key %q: invalid column", s)
	}
	return RegionKey{Page: page, Column: col}, nil
}

// MarshalText implements encoding.TextMarshaler so keys can be used as JSON
// map keys and values.
func (k RegionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RegionKey) UnmarshalText(b []byte) error {
	parsed, err := ParseRegionKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// =============================================================================
// Region - fixed-capacity area
// =============================================================================

// Region is one page column with its accepted capacity.
type Region struct {
	Key                     RegionKey `json:"key"`
	CapacityHeight          float64   `json:"capacity_height"`
	BottomThresholdFraction float64   `json:"bottom_threshold"`
}

// ThresholdLine returns the offset below which new content may not start.
func (r Region) ThresholdLine() float64 {
	return r.CapacityHeight * r.BottomThresholdFraction
}

// =============================================================================
// Placement - one entry slice in one region
// =============================================================================

// ItemRange selects the items of an entry held by a placement. Whole is set
// when the placement holds the complete entry.
type ItemRange struct {
	Start int
	End   int
	Whole bool
}

// WholeRange returns the range covering a complete entry.
func WholeRange() ItemRange {
	return ItemRange{Whole: true}
}

// Span returns a partial range [start, end).
func Span(start, end int) ItemRange {
	return ItemRange{Start: start, End: end}
}

// Resolve returns concrete bounds, expanding Whole to [0, n).
func (r ItemRange) Resolve(n int) (int, int) {
	if r.Whole {
		return 0, n
	}
	return r.Start, r.End
}

// String returns "whole" or "[start,end)".
func (r ItemRange) String() string {
	if r.Whole {
		return "whole"
	}
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// MarshalJSON encodes a whole range as "whole" and a slice as [start,end].
func (r ItemRange) MarshalJSON() ([]byte, error) {
	if r.Whole {
		return []byte(`"whole"`), nil
	}
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (r *ItemRange) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != "whole" {
			return fmt.Errorf("item range: unknown value %q", s)
		}
		*r = WholeRange()
		return nil
	}
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("item range: %w", err)
	}
	if pair[0] < 0 || pair[1] < pair[0] {
		return fmt.Errorf("item range: invalid bounds [%d,%d]", pair[0], pair[1])
	}
	*r = Span(pair[0], pair[1])
	return nil
}

// Placement is one entry, or a contiguous slice of one, assigned to a region.
type Placement struct {
	EntryID    string    `json:"entry_id"`
	Region     RegionKey `json:"region"`
	Items      ItemRange `json:"item_range"`
	ItemCount  int       `json:"item_count"`
	TopOffset  float64   `json:"top_offset"`
	Height     float64   `json:"height"`
	Overflowed bool      `json:"overflowed"`
}

// Range returns the concrete item bounds of the placement.
func (p Placement) Range() (int, int) {
	return p.Items.Resolve(p.ItemCount)
}

// Bottom returns the offset of the placement's lower edge.
func (p Placement) Bottom() float64 {
	return p.TopOffset + p.Height
}
