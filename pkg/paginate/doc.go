// Package paginate places variable-height content entries into fixed-size
// page columns.
//
// # Overview
//
// Planning runs after every entry has been measured. The [Planner] walks the
// entries in order and fills regions (one per page column) from the top,
// keeping a running cursor per region:
//
//  1. If the entry fits below the cursor and the cursor has not passed the
//     region's bottom-threshold line, it is placed whole.
//  2. Otherwise, if the region already holds content and the entry has more
//     than one item, [Split] finds the largest item prefix that fits. The
//     prefix stays, the rest moves on.
//  3. Otherwise the entry moves whole to the next region.
//
// An entry that does not fit an empty region is placed anyway (one item at a
// time for divisible entries) and flagged as overflowed. Planning therefore
// always terminates and never drops or duplicates items.
//
// # Heights
//
// An [Entry] reports the height of the whole block and, optionally, of each
// item. Without per-item heights a slice is assumed to take its share of the
// uniform average. The whole entry always uses the measured total.
//
// # State
//
// A [State] outlives individual passes. It filters jitter in reported region
// capacities through a [noise.Tracker] and remembers each entry's last good
// measurement so that a temporarily unmeasurable entry keeps its place.
//
// # Output
//
// A [Plan] lists placements in region order. [Plan.Verify] checks coverage,
// non-overlap and overflow flags, and [MarshalPlan] writes the JSON form
// consumed by renderers.
package paginate
