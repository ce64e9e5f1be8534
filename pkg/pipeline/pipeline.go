// Package pipeline provides the measure → plan → render pipeline for
// sheetflow.
//
// The CLI, and anything else that lays out documents, goes through a
// [Runner] so that caching, planner state and measurement cancellation
// behave the same everywhere.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Measure: obtain a height for every entry from the selected source
//  2. Plan: assign entries and item slices to page columns
//  3. Render: draw the plan in one or more output formats
//
// Measurement snapshots and rendered artifacts are cached. Plans are always
// recomputed: planning is cheap and depends on planner state that outlives a
// single run.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	defer runner.Close()
//
//	doc, _ := document.ReadFile("goblin.toml")
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Source:  pipeline.SourceEstimate,
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/paginate/noise"
)

// Measurement sources.
const (
	// SourceEstimate derives heights from entry text.
	SourceEstimate = noise.SourceEstimate

	// SourceRendered uses heights recorded in the document by an
	// off-screen render.
	SourceRendered = noise.SourceRendered

	// DefaultSource is used when Options.Source is empty.
	DefaultSource = SourceEstimate
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
	FormatPDF:  true,
	FormatXLSX: true,
}

// ValidSources is the set of supported measurement sources.
var ValidSources = map[string]bool{
	SourceEstimate: true,
	SourceRendered: true,
}

// Options contains the configuration for one pipeline run. Layout geometry
// comes from the document; Options only selects how it is measured and
// drawn.
type Options struct {
	// Measure options
	Source string `json:"source,omitempty"`
	// Width overrides the document's column width when non-zero.
	Width   float64 `json:"width,omitempty"`
	Refresh bool    `json:"refresh,omitempty"`
	// Estimator overrides the document's estimator settings.
	Estimator *measure.Estimator `json:"estimator,omitempty"`

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Labels     bool     `json:"labels,omitempty"`
	Thresholds bool     `json:"thresholds,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the measurement pass the plan was built from.
	Snapshot *measure.Snapshot

	// Plan is the placement plan.
	Plan paginate.Plan

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Entries     int
	Missing     int
	Placements  int
	Pages       int
	Overflowed  int
	MeasureTime time.Duration
	PlanTime    time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MeasureHit bool // Whether the snapshot came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, svg, pdf, xlsx)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSource checks that a measurement source is valid.
func ValidateSource(source string) error {
	if !ValidSources[source] {
		return errors.New(errors.ErrCodeInvalidSource,
			"invalid source: %q (must be one of: estimate, rendered)", source)
	}
	return nil
}

// SetDefaults fills unset fields. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForMeasure checks the fields used by the measure stage.
func (o *Options) ValidateForMeasure() error {
	o.SetDefaults()
	if err := ValidateSource(o.Source); err != nil {
		return err
	}
	if o.Width != 0 {
		if err := errors.ValidatePositive("width", o.Width); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForRender checks the fields used by the render stage.
func (o *Options) ValidateForRender() error {
	o.SetDefaults()
	return ValidateFormats(o.Formats)
}

// MeasureWidth returns the width entries are measured at.
func (o *Options) MeasureWidth(layoutWidth float64) float64 {
	if o.Width > 0 {
		return o.Width
	}
	return layoutWidth
}

// estimator returns the estimator for the run, preferring the override.
func (o *Options) estimator(fallback measure.Estimator) measure.Estimator {
	if o.Estimator != nil {
		return *o.Estimator
	}
	return fallback
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format, reportHash string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Labels:     o.Labels,
		ReportHash: reportHash,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %d placements on %d pages (%d overflowed)",
		s.Entries, s.Placements, s.Pages, s.Overflowed)
}
