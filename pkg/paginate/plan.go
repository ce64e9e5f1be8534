package paginate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Plan is the ordered output of a planning pass.
//
// A Plan is immutable once returned; renderers read it and never mutate it.
// It is rebuilt from scratch whenever entries or regions change.
type Plan struct {
	Columns    int         `json:"columns"`
	Pages      int         `json:"pages"`
	Spacing    float64     `json:"spacing"`
	Regions    []Region    `json:"regions"`
	Placements []Placement `json:"placements"`
}

// Region returns the region with the given key.
func (p Plan) Region(key RegionKey) (Region, bool) {
	for _, r := range p.Regions {
		if r.Key == key {
			return r, true
		}
	}
	return Region{}, false
}

// InRegion returns the placements of one region in top-to-bottom order.
func (p Plan) InRegion(key RegionKey) []Placement {
	var out []Placement
	for _, pl := range p.Placements {
		if pl.Region == key {
			out = append(out, pl)
		}
	}
	return out
}

// ForEntry returns the placements holding slices of one entry, in order.
func (p Plan) ForEntry(id string) []Placement {
	var out []Placement
	for _, pl := range p.Placements {
		if pl.EntryID == id {
			out = append(out, pl)
		}
	}
	return out
}

// Overflowed returns every placement that extends past its region.
func (p Plan) Overflowed() []Placement {
	var out []Placement
	for _, pl := range p.Placements {
		if pl.Overflowed {
			out = append(out, pl)
		}
	}
	return out
}

// SplitEntries returns the IDs of entries placed in more than one slice,
// sorted.
func (p Plan) SplitEntries() []string {
	counts := make(map[string]int)
	for _, pl := range p.Placements {
		counts[pl.EntryID]++
	}
	var ids []string
	for id, n := range counts {
		if n > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Verify checks the structural invariants of the plan:
//   - every placement targets a known region
//   - placements within a region do not overlap, including spacing
//   - each entry's slices cover [0, ItemCount) exactly once, in order
//   - Overflowed is set exactly when a placement extends past capacity
//
// When entries is non-empty, Verify also checks that every entry appears.
func (p Plan) Verify(entries []Entry) error {
	regions := make(map[RegionKey]Region, len(p.Regions))
	for _, r := range p.Regions {
		regions[r.Key] = r
	}

	lastInRegion := make(map[RegionKey]Placement)
	covered := make(map[string]int)
	counts := make(map[string]int)

	for i, pl := range p.Placements {
		r, ok := regions[pl.Region]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "placement %d (%s): unknown region %s", i, pl.EntryID, pl.Region)
		}

		if pl.TopOffset < -eps || pl.Height < -eps {
			return errors.New(errors.ErrCodeInternal, "placement %d (%s): negative geometry", i, pl.EntryID)
		}

		if prev, ok := lastInRegion[pl.Region]; ok {
			if prev.Bottom()+p.Spacing > pl.TopOffset+eps {
				return errors.New(errors.ErrCodeInternal,
					"placements %s and %s overlap in region %s", prev.EntryID, pl.EntryID, pl.Region)
			}
		}
		lastInRegion[pl.Region] = pl

		if want := overflows(pl.TopOffset, pl.Height, r.CapacityHeight); pl.Overflowed != want {
			return errors.New(errors.ErrCodeInternal,
				"placement %d (%s): overflowed=%v but bottom %.2f vs capacity %.2f",
				i, pl.EntryID, pl.Overflowed, pl.Bottom(), r.CapacityHeight)
		}

		if n, seen := counts[pl.EntryID]; seen && n != pl.ItemCount {
			return errors.New(errors.ErrCodeInternal, "entry %s: inconsistent item count", pl.EntryID)
		}
		counts[pl.EntryID] = pl.ItemCount

		start, end := pl.Range()
		if pl.Items.Whole && covered[pl.EntryID] != 0 {
			return errors.New(errors.ErrCodeInternal, "entry %s: whole placement after partial slices", pl.EntryID)
		}
		if start != covered[pl.EntryID] || end <= start {
			return errors.New(errors.ErrCodeInternal,
				"entry %s: slice %s does not continue at item %d", pl.EntryID, pl.Items, covered[pl.EntryID])
		}
		covered[pl.EntryID] = end
	}

	for id, n := range counts {
		if covered[id] != n {
			return errors.New(errors.ErrCodeInternal, "entry %s: covered %d of %d items", id, covered[id], n)
		}
	}

	for _, e := range entries {
		if _, ok := counts[e.ID]; !ok {
			return errors.New(errors.ErrCodeInternal, "entry %s: not placed", e.ID)
		}
	}

	return nil
}

func overflows(top, height, capacity float64) bool {
	return top+height > capacity+eps
}

// =============================================================================
// Plan Serialization API
// =============================================================================

// MarshalPlan serializes a Plan to pretty-printed JSON bytes.
func MarshalPlan(p Plan) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// UnmarshalPlan deserializes JSON bytes into a Plan and verifies it.
func UnmarshalPlan(data []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal plan")
	}
	if err := p.Verify(nil); err != nil {
		return Plan{}, fmt.Errorf("plan file is inconsistent: %w", err)
	}
	return p, nil
}

// WritePlanFile writes a Plan to a JSON file.
func WritePlanFile(p Plan, path string) error {
	data, err := MarshalPlan(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadPlanFile reads a Plan from a JSON file.
func ReadPlanFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Plan{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read plan %s", path)
		}
		return Plan{}, err
	}
	return UnmarshalPlan(data)
}
