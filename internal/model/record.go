package model

// RawRecord is a single collected process observation. Every value is text as
// produced by the collector; numeric fields are parsed by the feature builder.
type RawRecord map[string]string

// Get returns the value for field and whether it was present.
func (r RawRecord) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}
