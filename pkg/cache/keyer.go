package cache

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs always produce equal keys.
type Keyer interface {
	// MeasureKey identifies a measurement snapshot.
	MeasureKey(documentHash string, opts MeasureKeyOpts) string

	// EntryKey identifies one measured entry, for providers that cache per
	// entry.
	EntryKey(descriptorHash string, opts MeasureKeyOpts) string

	// ArtifactKey identifies a rendered artifact.
	ArtifactKey(planHash string, opts ArtifactKeyOpts) string
}

// MeasureKeyOpts holds the inputs besides content that change measurements.
type MeasureKeyOpts struct {
	Source string  `json:"source"`
	Width  float64 `json:"width"`
	// Estimator is a fingerprint of the estimator settings, empty for the
	// rendered source.
	Estimator string `json:"estimator,omitempty"`
}

// ArtifactKeyOpts holds the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Labels bool   `json:"labels,omitempty"`
	// ReportHash fingerprints the drift report embedded in spreadsheet
	// exports, if any.
	ReportHash string `json:"report_hash,omitempty"`
}

// DefaultKeyer produces plain, unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MeasureKey returns "measure:<hash>".
func (DefaultKeyer) MeasureKey(documentHash string, opts MeasureKeyOpts) string {
	return hashKey("measure", documentHash, opts)
}

// EntryKey returns "entry:<hash>".
func (DefaultKeyer) EntryKey(descriptorHash string, opts MeasureKeyOpts) string {
	return hashKey("entry", descriptorHash, opts)
}

// ArtifactKey returns "artifact:<format>:<hash>".
func (DefaultKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, planHash, opts)
}

var _ Keyer = DefaultKeyer{}
