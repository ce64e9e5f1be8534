package paginate

import (
	"maps"
	"math"

	"github.com/matzehuels/sheetflow/pkg/errors"
)

// Default configuration values.
const (
	DefaultColumns         = 1
	DefaultSpacing         = 12.0
	DefaultBottomThreshold = 1.0
)

// RegionConfig describes the geometry of one region.
type RegionConfig struct {
	// CapacityHeight is the usable height of the region in pixels.
	CapacityHeight float64 `json:"capacity" toml:"capacity"`

	// BottomThresholdFraction is the fraction of capacity beyond which a new
	// entry may not start. 1.0 disables the rule; 0 means "use the default".
	BottomThresholdFraction float64 `json:"bottom_threshold" toml:"bottom_threshold"`
}

// Config holds the inputs of a planning pass besides the entries.
type Config struct {
	// Columns per page. Regions are filled column by column, page by page.
	Columns int `json:"columns"`

	// Region is the geometry shared by every region without an override.
	Region RegionConfig `json:"region"`

	// Overrides replace Region for specific page/column pairs.
	Overrides map[RegionKey]RegionConfig `json:"overrides,omitempty"`

	// Spacing is the vertical gap added after every placement.
	Spacing float64 `json:"spacing"`
}

// DefaultConfig returns a single-column configuration with default spacing.
// Region.CapacityHeight must still be set before use.
func DefaultConfig() Config {
	return Config{
		Columns: DefaultColumns,
		Region:  RegionConfig{BottomThresholdFraction: DefaultBottomThreshold},
		Spacing: DefaultSpacing,
	}
}

// SetDefaults fills zero-valued fields that have a natural default.
// Spacing is left alone because zero spacing is a valid choice.
func (c *Config) SetDefaults() {
	if c.Columns == 0 {
		c.Columns = DefaultColumns
	}
	if c.Region.BottomThresholdFraction == 0 {
		c.Region.BottomThresholdFraction = DefaultBottomThreshold
	}
	for k, o := range c.Overrides {
		if o.BottomThresholdFraction == 0 {
			o.BottomThresholdFraction = c.Region.BottomThresholdFraction
		}
		if o.CapacityHeight == 0 {
			o.CapacityHeight = c.Region.CapacityHeight
		}
		c.Overrides[k] = o
	}
}

// Validate checks the configuration and returns an INVALID_CONFIG error for
// the first problem found.
func (c Config) Validate() error {
	if c.Columns < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "columns must be at least 1, got %d", c.Columns)
	}
	if err := errors.ValidateNonNegative("spacing", c.Spacing); err != nil {
		return err
	}
	if err := c.Region.validate("region"); err != nil {
		return err
	}
	for k, o := range c.Overrides {
		if k.Page < 0 || k.Column < 0 || k.Column >= c.Columns {
			return errors.New(errors.ErrCodeInvalidConfig, "override %s is outside the %d-column grid", k, c.Columns)
		}
		if err := o.validate("region " + k.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r RegionConfig) validate(name string) error {
	if err := errors.ValidatePositive(name+" capacity", r.CapacityHeight); err != nil {
		return err
	}
	return errors.ValidateFraction(name+" bottom_threshold", r.BottomThresholdFraction)
}

// RegionAt returns the configured geometry for key.
func (c Config) RegionAt(key RegionKey) Region {
	rc := c.Region
	if o, ok := c.Overrides[key]; ok {
		rc = o
	}
	return Region{
		Key:                     key,
		CapacityHeight:          rc.CapacityHeight,
		BottomThresholdFraction: rc.BottomThresholdFraction,
	}
}

// KeyAt maps a linear region index to its page and column.
func (c Config) KeyAt(index int) RegionKey {
	return RegionKey{Page: index / c.Columns, Column: index % c.Columns}
}

// clone returns a deep copy so planners are isolated from later edits.
func (c Config) clone() Config {
	out := c
	if c.Overrides != nil {
		out.Overrides = maps.Clone(c.Overrides)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
