package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects can share
// one Redis instance without their keys colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "sheetflow:bestiary:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MeasureKey generates a prefixed snapshot key.
func (k *ScopedKeyer) MeasureKey(documentHash string, opts MeasureKeyOpts) string {
	return k.prefix + k.inner.MeasureKey(documentHash, opts)
}

// EntryKey generates a prefixed per-entry key.
func (k *ScopedKeyer) EntryKey(descriptorHash string, opts MeasureKeyOpts) string {
	return k.prefix + k.inner.EntryKey(descriptorHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(planHash, opts)
}
