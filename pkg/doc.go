// Package pkg provides the libraries behind the sheetflow layout planner.
//
// # Overview
//
// Sheetflow decides how a sequence of content blocks (entries) flows through
// a grid of page columns. Each entry is measured, assigned to a region
// (one column of one page), split between items when it does not fit, and
// flagged as overflowed when no split helps. The result is a plan that the
// render sinks draw as SVG, PDF or a spreadsheet.
//
// # Architecture
//
//	Document (TOML/JSON)
//	         ↓
//	    [measure] (heights per entry, estimated or recorded)
//	         ↓
//	    [paginate] (regions, splits, overflow)
//	         ↓
//	    [render/sink] (JSON, SVG, PDF, XLSX)
//
// [pipeline] runs these stages with caching from [cache] and events from
// [observability]. The CLI in internal/cli is a thin layer over it.
//
// # Main Packages
//
// [paginate] - The planner. Regions, placements, the split engine and the
// planner state that remembers region heights between runs.
//
// [paginate/noise] - Filters small height changes out of region readings so
// repeated measurements do not cause layout churn.
//
// [measure] - Height providers: a text estimator, recorded heights, a
// caching wrapper, and a measurer that supersedes stale passes.
//
// [document] - The input format: layout geometry plus the entries to place.
//
// [render/sink] - Output formats for plans.
//
// [pipeline] - Measure, plan and render with caching. Used by every command.
//
// [cache] - File, Redis and no-op caches with typed keys and TTLs.
//
// [errors] - Error codes shared across packages.
//
// # Quick Start
//
//	doc, _ := document.ReadFile("goblin.toml")
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	defer runner.Close()
//
//	res, _ := runner.Execute(ctx, doc, pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	os.WriteFile("goblin.svg", res.Artifacts[pipeline.FormatSVG], 0o644)
//
// [paginate]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/paginate
// [paginate/noise]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/paginate/noise
// [measure]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/measure
// [document]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/document
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/render/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/sheetflow/pkg/errors
package pkg
