package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/document"
	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/observability"
	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/paginate/noise"
)

// Runner encapsulates pipeline execution with caching.
//
// Besides the cache, a Runner owns the planner state that carries accepted
// region capacities and last good measurements between runs, and the
// measurement passes in flight. Starting a measurement for a source
// supersedes the previous pass for that source. Runner is safe for
// concurrent use; planning passes are serialized.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// State is the planner state reused across runs. It is created on first
	// use and replaced when a document brings a different noise filter.
	State *paginate.State

	mu       sync.Mutex
	inflight map[string]*measure.Measurer
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		inflight: make(map[string]*measure.Measurer),
	}
}

// Execute runs the complete measure → plan → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, doc *document.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForMeasure(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Measure
	measureStart := time.Now()
	snap, measureHit, err := r.MeasureWithCacheInfo(ctx, doc, opts)
	if err != nil {
		return nil, stageError("measure", err)
	}
	result.Snapshot = snap
	result.Stats.MeasureTime = time.Since(measureStart)
	result.Stats.Entries = len(snap.Entries)
	result.Stats.Missing = len(snap.Missing)
	result.CacheInfo.MeasureHit = measureHit

	r.Logger.Info("measured entries",
		"source", snap.Source,
		"entries", len(snap.Entries),
		"missing", len(snap.Missing),
		"cached", measureHit,
		"duration", result.Stats.MeasureTime)

	// Stage 2: Plan
	planStart := time.Now()
	plan, err := r.Plan(ctx, doc, snap, opts)
	if err != nil {
		return nil, stageError("plan", err)
	}
	result.Plan = plan
	result.Stats.PlanTime = time.Since(planStart)
	result.Stats.Placements = len(plan.Placements)
	result.Stats.Pages = plan.Pages
	result.Stats.Overflowed = len(plan.Overflowed())

	r.Logger.Info("planned layout",
		"pages", plan.Pages,
		"placements", len(plan.Placements),
		"overflowed", result.Stats.Overflowed,
		"duration", result.Stats.PlanTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, plan, RenderInput{
		Title:  doc.Title,
		Labels: doc.Titles(),
	}, opts)
	if err != nil {
		return nil, stageError("render", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// MeasureWithCacheInfo measures every entry of doc and returns cache hit
// info. A pass that is superseded before it finishes returns an error with
// code ErrCodeSuperseded.
func (r *Runner) MeasureWithCacheInfo(ctx context.Context, doc *document.Document, opts Options) (*measure.Snapshot, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForMeasure(); err != nil {
		return nil, false, err
	}

	width := opts.MeasureWidth(doc.Layout.Width)
	keyOpts := cache.MeasureKeyOpts{Source: opts.Source, Width: width}
	est := opts.estimator(doc.Estimator())
	if opts.Source == SourceEstimate {
		keyOpts.Estimator = est.Fingerprint()
	}
	cacheKey := r.Keyer.MeasureKey(doc.Hash(), keyOpts)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if snap, err := measure.UnmarshalSnapshot(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "measure")
				return snap, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "measure")
	}

	var provider measure.Provider = measure.Static{}
	if opts.Source == SourceEstimate {
		provider = measure.NewCached(est, r.Cache, r.Keyer, opts.Source, keyOpts.Estimator)
	}
	m := r.begin(opts.Source, provider, opts.Logger)
	defer r.finish(opts.Source, m)

	descs := doc.Descriptors()
	hooks := observability.Pipeline()
	hooks.OnMeasureStart(ctx, opts.Source, len(descs))
	start := time.Now()

	snap, err := m.Measure(ctx, width, descs)
	if err != nil {
		hooks.OnMeasureComplete(ctx, opts.Source, 0, time.Since(start), err)
		return nil, false, err
	}
	if opts.Source == SourceRendered {
		snap.Width = doc.RecordedWidth()
		if !measure.SameWidth(snap.Width, width) {
			opts.Logger.Warn("recorded heights were taken at another width",
				"recorded", snap.Width, "requested", width, "missing", len(snap.Missing))
		}
	}
	hooks.OnMeasureComplete(ctx, opts.Source, len(snap.Missing), time.Since(start), nil)

	if data, err := measure.MarshalSnapshot(snap); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.MeasureTTL) == nil {
			observability.Cache().OnCacheSet(ctx, "measure", len(data))
		}
	}
	return snap, false, nil
}

// Measure is a convenience wrapper that calls MeasureWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Measure(ctx context.Context, doc *document.Document, opts Options) (*measure.Snapshot, error) {
	snap, _, err := r.MeasureWithCacheInfo(ctx, doc, opts)
	return snap, err
}

// Plan lays out a measured snapshot using the document's geometry.
func (r *Runner) Plan(ctx context.Context, doc *document.Document, snap *measure.Snapshot, opts Options) (paginate.Plan, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()

	cfg, err := doc.Config()
	if err != nil {
		return paginate.Plan{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.stateFor(doc.Filter())
	planner, err := paginate.NewPlanner(cfg,
		paginate.WithState(state),
		paginate.WithLogger(opts.Logger))
	if err != nil {
		return paginate.Plan{}, err
	}

	hooks := observability.Pipeline()
	hooks.OnPlanStart(ctx, len(snap.Entries))
	start := time.Now()

	plan, err := planner.Plan(snap.Entries)
	if err == nil {
		err = plan.Verify(snap.Entries)
	}
	if err != nil {
		hooks.OnPlanComplete(ctx, 0, 0, time.Since(start), err)
		return paginate.Plan{}, err
	}
	hooks.OnPlanComplete(ctx, plan.Pages, len(plan.Overflowed()), time.Since(start), nil)
	return plan, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit
// info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, plan paginate.Plan, in RenderInput, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Labels and title change the drawing, so they are part of the key.
	keyInput := struct {
		Plan   paginate.Plan     `json:"plan"`
		Title  string            `json:"title,omitempty"`
		Labels map[string]string `json:"labels,omitempty"`
		Bounds bool              `json:"thresholds,omitempty"`
	}{Plan: plan, Title: in.Title, Bounds: opts.Thresholds}
	if opts.Labels {
		keyInput.Labels = in.Labels
	}
	planHash, err := cache.HashJSON(keyInput)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash plan for cache key")
	}
	var reportHash string
	if in.Report != nil {
		if reportHash, err = cache.HashJSON(in.Report); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash report for cache key")
		}
	}

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(planHash, opts.ArtifactKeyOpts(format, reportHash))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	rendered, err := Render(plan, in, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(planHash, opts.ArtifactKeyOpts(format, reportHash))
		if r.Cache.Set(ctx, cacheKey, data, cache.ArtifactTTL) == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return rendered, false, nil
}

// Diagnose measures doc with both sources at the same width and reports
// how far the estimates drift from the recorded heights.
func (r *Runner) Diagnose(ctx context.Context, doc *document.Document, opts Options) (measure.Report, error) {
	estOpts := opts
	estOpts.Source = SourceEstimate
	estimate, err := r.Measure(ctx, doc, estOpts)
	if err != nil {
		return measure.Report{}, err
	}

	renOpts := opts
	renOpts.Source = SourceRendered
	rendered, err := r.Measure(ctx, doc, renOpts)
	if err != nil {
		return measure.Report{}, err
	}

	return measure.Compare(estimate, rendered)
}

// Supersede cancels every measurement pass in flight.
func (r *Runner) Supersede() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for source, m := range r.inflight {
		m.Supersede()
		delete(r.inflight, source)
	}
}

// ResetState forgets accepted region capacities and remembered
// measurements, for example after the document content changed.
func (r *Runner) ResetState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != nil {
		r.State.Reset()
	}
}

// Close releases resources held by the runner: passes in flight, the
// planner state and the cache.
func (r *Runner) Close() error {
	r.Supersede()

	r.mu.Lock()
	if r.State != nil {
		_ = r.State.Close()
		r.State = nil
	}
	r.mu.Unlock()

	if nc, ok := r.Cache.(*cache.NullCache); ok {
		st := nc.Stats()
		r.Logger.Debug("caching disabled", "lookups", st.Lookups, "dropped_bytes", st.DroppedBytes)
	}
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// begin registers a new measurement pass for source, superseding the
// previous one.
func (r *Runner) begin(source string, p measure.Provider, logger *log.Logger) *measure.Measurer {
	m := measure.NewMeasurer(p, source, logger)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight == nil {
		r.inflight = make(map[string]*measure.Measurer)
	}
	if prev, ok := r.inflight[source]; ok {
		r.Logger.Debug("superseding measurement pass", "source", source)
		prev.Supersede()
	}
	r.inflight[source] = m
	return m
}

// finish unregisters m if it is still the current pass for source.
func (r *Runner) finish(source string, m *measure.Measurer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[source] == m {
		delete(r.inflight, source)
	}
}

// stateFor returns the planner state for filter. Callers hold r.mu.
func (r *Runner) stateFor(filter noise.Filter) *paginate.State {
	if r.State != nil && r.State.Regions().Filter() == filter {
		return r.State
	}
	if r.State != nil {
		r.Logger.Debug("noise filter changed, starting fresh planner state")
		_ = r.State.Close()
	}
	r.State = paginate.NewState(filter)
	return r.State
}

// stageError wraps err with the stage name, keeping its code.
func stageError(stage string, err error) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errors.Wrap(code, err, "%s", stage)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
