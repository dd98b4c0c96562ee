package store

// Metadata is a thin string-to-string mapping attached to an internal id,
// grounded on original_source's Metadata type: no nested structure, no
// typed values.
type Metadata struct {
	fields map[string]string
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{fields: make(map[string]string)}
}

// Insert sets key to value, overwriting any existing value.
func (m *Metadata) Insert(key, value string) {
	if m.fields == nil {
		m.fields = make(map[string]string)
	}
	m.fields[key] = value
}

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Clone returns an independent copy of m.
func (m Metadata) Clone() Metadata {
	out := make(map[string]string, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return Metadata{fields: out}
}

// Fields returns an independent copy of m's key/value pairs, for callers
// that need to enumerate every field (e.g. serializing a snapshot).
func (m Metadata) Fields() map[string]string {
	out := make(map[string]string, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// Filter is a recursive predicate evaluated against a single metadata
// mapping.
type Filter interface {
	Matches(m Metadata) bool
}

// Eq matches when Field is present and equals Value.
type Eq struct {
	Field string
	Value string
}

func (f Eq) Matches(m Metadata) bool {
	v, ok := m.Get(f.Field)
	return ok && v == f.Value
}

// Ne matches when Field is absent or does not equal Value.
type Ne struct {
	Field string
	Value string
}

func (f Ne) Matches(m Metadata) bool {
	v, ok := m.Get(f.Field)
	return !ok || v != f.Value
}

// Exists matches when Field is present, regardless of value.
type Exists struct {
	Field string
}

func (f Exists) Matches(m Metadata) bool {
	_, ok := m.Get(f.Field)
	return ok
}

// And matches when every child matches. And([]) is true.
type And struct {
	Children []Filter
}

func (f And) Matches(m Metadata) bool {
	for _, c := range f.Children {
		if !c.Matches(m) {
			return false
		}
	}
	return true
}

// Or matches when any child matches. Or([]) is false.
type Or struct {
	Children []Filter
}

func (f Or) Matches(m Metadata) bool {
	for _, c := range f.Children {
		if c.Matches(m) {
			return true
		}
	}
	return false
}
