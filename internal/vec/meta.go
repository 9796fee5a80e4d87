package vec

import "fmt"

// Meta is the fixed per-variable metadata record. The set of recognized
// fields is closed: flattened element count, whether the value can live in
// the numeric buffer, and whether this rank holds the authoritative copy.
type Meta struct {
	Size   int  // flattened element count on this rank
	NoFlat bool // true if the value cannot be stored as a numeric slice
	Owned  bool // true on the rank holding the authoritative copy
}

// VarSet is an ordered set of variable declarations. Declaration order is
// semantically significant: it fixes buffer slice offsets and must be
// reproducible run-to-run, which is why a plain map cannot serve here.
type VarSet struct {
	names []string
	meta  map[string]Meta
}

// NewVarSet returns an empty variable set.
func NewVarSet() *VarSet {
	return &VarSet{meta: make(map[string]Meta)}
}

// Add declares a variable with its metadata. Declaration order is
// preserved. Redeclaring a name is an error.
func (s *VarSet) Add(name string, m Meta) error {
	if _, ok := s.meta[name]; ok {
		return fmt.Errorf("variable %q: %w", name, ErrDuplicateVariable)
	}
	s.names = append(s.names, name)
	s.meta[name] = m
	return nil
}

// Len returns the number of declared variables.
func (s *VarSet) Len() int { return len(s.names) }

// Names returns the variable names in declaration order.
func (s *VarSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Meta returns the metadata for name.
func (s *VarSet) Meta(name string) (Meta, bool) {
	m, ok := s.meta[name]
	return m, ok
}
