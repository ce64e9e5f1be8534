package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/document"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// layoutFlags holds the flags shared by commands that lay out a document.
// Geometry flags override the document's layout section only when set.
type layoutFlags struct {
	source    string  // measurement source: estimate or rendered
	width     float64 // column content width
	columns   int     // columns per page
	capacity  float64 // column height
	threshold float64 // bottom threshold fraction
	spacing   float64 // gap between placements
	noCache   bool    // disable caching
	refresh   bool    // ignore cached measurements
	cacheURL  string  // redis URL for a shared cache

	cmd *cobra.Command
}

// register adds the flags to cmd along with their shell completions.
func (f *layoutFlags) register(cmd *cobra.Command) {
	f.cmd = cmd
	fs := cmd.Flags()
	fs.StringVar(&f.source, "source", pipeline.DefaultSource, "measurement source: estimate, rendered")
	fs.Float64Var(&f.width, "width", 0, "column content width (overrides document)")
	fs.IntVar(&f.columns, "columns", 0, "columns per page (overrides document)")
	fs.Float64Var(&f.capacity, "capacity", 0, "column height (overrides document)")
	fs.Float64Var(&f.threshold, "threshold", 0, "bottom threshold fraction in (0,1] (overrides document)")
	fs.Float64Var(&f.spacing, "spacing", 0, "vertical gap between placements (overrides document)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "remeasure even when a cached snapshot exists")
	fs.StringVar(&f.cacheURL, "cache-url", "", "redis URL for a shared cache (default $"+redisURLEnv+")")

	_ = cmd.RegisterFlagCompletionFunc("source", completeSources)
	if cmd.ValidArgsFunction == nil {
		cmd.ValidArgsFunction = completeDocuments
	}
}

// changed reports whether the named flag was set on the command line.
func (f *layoutFlags) changed(name string) bool {
	return f.cmd != nil && f.cmd.Flags().Changed(name)
}

// apply writes the set geometry flags into the document layout and
// revalidates it.
func (f *layoutFlags) apply(doc *document.Document) error {
	if f.changed("width") {
		doc.SetWidth(f.width)
	}
	if f.changed("columns") {
		doc.Layout.Columns = f.columns
	}
	if f.changed("capacity") {
		doc.Layout.Capacity = f.capacity
	}
	if f.changed("threshold") {
		t := f.threshold
		doc.Layout.BottomThreshold = &t
	}
	if f.changed("spacing") {
		s := f.spacing
		doc.Layout.Spacing = &s
	}
	return doc.Validate()
}

// options returns pipeline options for the flags.
func (f *layoutFlags) options() pipeline.Options {
	return pipeline.Options{
		Source:  f.source,
		Refresh: f.refresh,
	}
}

// loadDocument reads path and applies the geometry flags.
func (f *layoutFlags) loadDocument(path string) (*document.Document, error) {
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := f.apply(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
