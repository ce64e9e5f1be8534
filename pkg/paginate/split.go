package paginate

// SplitRequest describes the space left in a region for the remainder of an
// entry.
type SplitRequest struct {
	// Start is the first item of the remainder.
	Start int
	// Available is the space between the cursor and the region's capacity.
	Available float64
	// Spacing is the gap that follows the slice.
	Spacing float64
	// Offset is the cursor position where the slice would start.
	Offset float64
	// Threshold is the region's bottom-threshold line. Zero disables the
	// check.
	Threshold float64
}

// Split returns the largest number of items, counted from req.Start, whose
// combined height plus spacing fits in req.Available. It returns 0 when no
// prefix fits or when the slice would start below the threshold line.
//
// The result is always in [0, remaining]. Larger prefixes are preferred, so
// an entry is only split as late as possible.
func Split(e Entry, req SplitRequest) int {
	remaining := e.count() - req.Start
	if remaining <= 0 {
		return 0
	}
	if req.Threshold > 0 && req.Offset > req.Threshold+eps {
		return 0
	}
	for k := remaining; k >= 1; k-- {
		h := e.SliceHeight(req.Start, req.Start+k)
		if h+req.Spacing <= req.Available+eps {
			return k
		}
	}
	return 0
}
