// Package document reads sheetflow input documents.
//
// A document lists the entries of a sheet in reading order together with the
// page geometry to lay them out on. Documents are written in TOML or JSON:
//
//	[layout]
//	columns = 2
//	width = 320            # column content width, px
//	capacity = 980         # column height, px
//	bottom_threshold = 0.9 # optional, 1.0 disables
//	spacing = 12           # optional
//
//	[[entries]]
//	id = "actions"
//	title = "Actions"
//	items = ["Multiattack. ...", "Bite. ..."]
//	height = 212           # optional, recorded by an off-screen render
//
// Heights recorded in the document are used by the "rendered" measurement
// source; the "estimate" source derives heights from the text.
package document

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/paginate/noise"
)

// Supported document formats.
const (
	FormatTOML = "toml"
	FormatJSON = "json"
)

// Document is a parsed input document.
type Document struct {
	Title   string  `json:"title,omitempty" toml:"title,omitempty"`
	Layout  Layout  `json:"layout" toml:"layout"`
	Entries []Entry `json:"entries" toml:"entries"`
}

// Layout is the page geometry and tuning of a document.
type Layout struct {
	Columns         int                `json:"columns,omitempty" toml:"columns,omitempty"`
	Width           float64            `json:"width" toml:"width"`
	Capacity        float64            `json:"capacity" toml:"capacity"`
	BottomThreshold *float64           `json:"bottom_threshold,omitempty" toml:"bottom_threshold,omitempty"`
	Spacing         *float64           `json:"spacing,omitempty" toml:"spacing,omitempty"`
	Regions         []RegionOverride   `json:"regions,omitempty" toml:"regions,omitempty"`
	Noise           *noise.Filter      `json:"noise,omitempty" toml:"noise,omitempty"`
	Estimator       *measure.Estimator `json:"estimator,omitempty" toml:"estimator,omitempty"`
	// MeasuredWidth is the column width recorded heights were taken at.
	// Unset means Width.
	MeasuredWidth *float64 `json:"measured_width,omitempty" toml:"measured_width,omitempty"`
}

// RegionOverride changes the geometry of one page column, for example a
// first page with a banner.
type RegionOverride struct {
	Page            int     `json:"page" toml:"page"`
	Column          int     `json:"column" toml:"column"`
	Capacity        float64 `json:"capacity,omitempty" toml:"capacity,omitempty"`
	BottomThreshold float64 `json:"bottom_threshold,omitempty" toml:"bottom_threshold,omitempty"`
}

// Entry is one content block of the document.
type Entry struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title,omitempty" toml:"title,omitempty"`
	Items       []string  `json:"items,omitempty" toml:"items,omitempty"`
	Height      *float64  `json:"height,omitempty" toml:"height,omitempty"`
	ItemHeights []float64 `json:"item_heights,omitempty" toml:"item_heights,omitempty"`
}

// FormatFromPath returns the document format implied by a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported document extension %q (want .toml or .json)", filepath.Ext(path))
	}
}

// ReadFile reads and validates a document, choosing the parser by extension.
func ReadFile(path string) (*Document, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "document %s", path)
		}
		return nil, err
	}
	return Read(bytes.NewReader(data), format)
}

// Read parses and validates a document. Unknown keys are rejected so that
// typos in layout settings do not go unnoticed.
func Read(r io.Reader, format string) (*Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse toml document")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown key %q", undecoded[0].String())
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse json document")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported document format %q", format)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Write encodes the document in the given format.
func (d *Document) Write(w io.Writer, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(d)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported document format %q", format)
	}
}

// WriteFile writes the document, choosing the encoder by extension.
func (d *Document) WriteFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := d.Write(&buf, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate checks entry IDs, heights and the layout geometry.
func (d *Document) Validate() error {
	if err := errors.ValidatePositive("layout.width", d.Layout.Width); err != nil {
		return err
	}
	if _, err := d.Config(); err != nil {
		return err
	}
	if d.Layout.Noise != nil {
		if err := d.Layout.Noise.Validate(); err != nil {
			return err
		}
	}
	if d.Layout.MeasuredWidth != nil {
		if err := errors.ValidatePositive("layout.measured_width", *d.Layout.MeasuredWidth); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(d.Entries))
	for i, e := range d.Entries {
		if err := errors.ValidateEntryID(e.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidEntry, err, "entries[%d]", i)
		}
		if _, dup := seen[e.ID]; dup {
			return errors.New(errors.ErrCodeInvalidEntry, "duplicate entry id %q", e.ID)
		}
		seen[e.ID] = struct{}{}

		if e.Height != nil {
			if err := errors.ValidateNonNegative("entries."+e.ID+".height", *e.Height); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidEntry, err, "entry %s", e.ID)
			}
		}
		for _, h := range e.ItemHeights {
			if err := errors.ValidateNonNegative("entries."+e.ID+".item_heights", h); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidEntry, err, "entry %s", e.ID)
			}
		}
		if len(e.Items) > 0 && len(e.ItemHeights) > 0 && len(e.Items) != len(e.ItemHeights) {
			return errors.New(errors.ErrCodeInvalidEntry,
				"entry %s: %d items but %d item heights", e.ID, len(e.Items), len(e.ItemHeights))
		}
	}
	return nil
}

// Config converts the layout section to a validated planner configuration.
func (d *Document) Config() (paginate.Config, error) {
	cfg := paginate.DefaultConfig()
	if d.Layout.Columns != 0 {
		cfg.Columns = d.Layout.Columns
	}
	cfg.Region.CapacityHeight = d.Layout.Capacity
	if d.Layout.BottomThreshold != nil {
		cfg.Region.BottomThresholdFraction = *d.Layout.BottomThreshold
	}
	if d.Layout.Spacing != nil {
		cfg.Spacing = *d.Layout.Spacing
	}
	if len(d.Layout.Regions) > 0 {
		cfg.Overrides = make(map[paginate.RegionKey]paginate.RegionConfig, len(d.Layout.Regions))
		for _, o := range d.Layout.Regions {
			cfg.Overrides[paginate.RegionKey{Page: o.Page, Column: o.Column}] = paginate.RegionConfig{
				CapacityHeight:          o.Capacity,
				BottomThresholdFraction: o.BottomThreshold,
			}
		}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return paginate.Config{}, err
	}
	return cfg, nil
}

// Filter returns the noise filter for region readings.
func (d *Document) Filter() noise.Filter {
	if d.Layout.Noise != nil {
		return d.Layout.Noise.WithDefaults()
	}
	return noise.DefaultFilter()
}

// Estimator returns the text estimator settings.
func (d *Document) Estimator() measure.Estimator {
	if d.Layout.Estimator != nil {
		return *d.Layout.Estimator
	}
	return measure.DefaultEstimator()
}

// Descriptors returns the entries as measurement descriptors, indexed in
// document order.
func (d *Document) Descriptors() []measure.Descriptor {
	out := make([]measure.Descriptor, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = measure.Descriptor{
			ID:          e.ID,
			Index:       i,
			Title:       e.Title,
			Items:       slices.Clone(e.Items),
			ItemHeights: slices.Clone(e.ItemHeights),
		}
		if e.Height != nil {
			h := *e.Height
			out[i].Height = &h
		}
		if e.recorded() {
			out[i].MeasuredWidth = d.RecordedWidth()
		}
	}
	return out
}

// RecordedWidth returns the column width the recorded heights hold for.
func (d *Document) RecordedWidth() float64 {
	if d.Layout.MeasuredWidth != nil {
		return *d.Layout.MeasuredWidth
	}
	return d.Layout.Width
}

// SetWidth changes the layout width. Heights already recorded stay tied to
// the width they were taken at.
func (d *Document) SetWidth(width float64) {
	if d.Layout.MeasuredWidth == nil {
		w := d.Layout.Width
		d.Layout.MeasuredWidth = &w
	}
	d.Layout.Width = width
}

func (e Entry) recorded() bool {
	return e.Height != nil || len(e.ItemHeights) > 0
}

// Titles maps entry IDs to display titles, falling back to the ID.
func (d *Document) Titles() map[string]string {
	out := make(map[string]string, len(d.Entries))
	for _, e := range d.Entries {
		if e.Title != "" {
			out[e.ID] = e.Title
		} else {
			out[e.ID] = e.ID
		}
	}
	return out
}

// Hash fingerprints the document content for cache keys.
func (d *Document) Hash() string {
	h, err := cache.HashJSON(d)
	if err != nil {
		return ""
	}
	return h
}

// WithMeasurements returns a copy of the document with heights recorded
// from snap at snap.Width. Unmeasured entries keep their previous values
// only when those were recorded at the same width; otherwise they are
// cleared.
func (d *Document) WithMeasurements(snap *measure.Snapshot) *Document {
	out := *d
	out.Entries = slices.Clone(d.Entries)
	width := snap.Width
	out.Layout.MeasuredWidth = &width
	sameWidth := measure.SameWidth(d.RecordedWidth(), width)

	for i, e := range out.Entries {
		m, ok := snap.Entry(e.ID)
		if !ok || !m.Measured {
			if !sameWidth {
				out.Entries[i].Height = nil
				out.Entries[i].ItemHeights = nil
			}
			continue
		}
		h := m.MeasuredHeight
		out.Entries[i].Height = &h
		out.Entries[i].ItemHeights = slices.Clone(m.ItemHeights)
	}
	return &out
}
