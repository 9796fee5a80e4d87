// Package vec implements the process-local distributed variable vector:
// one contiguous float64 buffer holding the flattened values of a named,
// ordered set of variables, plus the name → slice index and the size table
// describing every rank's contribution to the full distributed vector.
package vec

import (
	"fmt"
	"math"

	"github.com/helio-mdo/helio/internal/comm"
)

type span struct {
	start, end int
}

// Vector is the shared core of the source and target vector variants. The
// name → span index partitions the buffer exactly: spans never overlap and
// every element belongs to exactly one variable.
type Vector struct {
	comm  comm.Communicator
	path  string // absolute dotted name of the owning system
	buf   []float64
	order []string // flattenable variables in declaration order
	spans map[string]span
	meta  map[string]Meta

	// Opaque values for non-flattenable variables, addressable by name,
	// excluded from the buffer and from index-based transfer.
	noflat map[string]interface{}
}

func newVector(path string, c comm.Communicator) Vector {
	return Vector{
		comm:   c,
		path:   path,
		spans:  make(map[string]span),
		meta:   make(map[string]Meta),
		noflat: make(map[string]interface{}),
	}
}

// layout appends a flattenable variable's slice at the end of the buffer.
func (v *Vector) layout(name string, m Meta) {
	start := len(v.buf)
	v.buf = append(v.buf, make([]float64, m.Size)...)
	v.order = append(v.order, name)
	v.spans[name] = span{start: start, end: start + m.Size}
	v.meta[name] = m
}

// Path returns the absolute dotted name of the owning system.
func (v *Vector) Path() string { return v.path }

// Comm returns the communicator this vector was built with.
func (v *Vector) Comm() comm.Communicator { return v.comm }

// Len returns the local buffer length.
func (v *Vector) Len() int { return len(v.buf) }

// Buffer returns the local buffer. Callers index it directly; the transfer
// layer reads and writes through the offsets published by Span.
func (v *Vector) Buffer() []float64 { return v.buf }

// Names returns the flattenable variable names in declaration order.
func (v *Vector) Names() []string {
	return append([]string(nil), v.order...)
}

// Meta returns the metadata record for name.
func (v *Vector) Meta(name string) (Meta, bool) {
	m, ok := v.meta[name]
	return m, ok
}

// Span returns the half-open local buffer range [start, end) of name.
func (v *Vector) Span(name string) (start, end int, err error) {
	s, ok := v.spans[name]
	if !ok {
		return 0, 0, fmt.Errorf("%s: variable %q: %w", v.path, name, ErrUnknownVariable)
	}
	return s.start, s.end, nil
}

// Slice returns the buffer slice of name. The slice aliases the buffer, so
// writes through it are visible to transfers.
func (v *Vector) Slice(name string) ([]float64, error) {
	s, ok := v.spans[name]
	if !ok {
		return nil, fmt.Errorf("%s: variable %q: %w", v.path, name, ErrUnknownVariable)
	}
	return v.buf[s.start:s.end], nil
}

// NoFlat returns the opaque value stored for a non-flattenable variable.
func (v *Vector) NoFlat(name string) (interface{}, bool) {
	val, ok := v.noflat[name]
	return val, ok
}

// SetNoFlat stores the opaque value of a non-flattenable variable.
func (v *Vector) SetNoFlat(name string, val interface{}) error {
	m, ok := v.meta[name]
	if !ok || !m.NoFlat {
		return fmt.Errorf("%s: variable %q is not a stored non-flattenable variable: %w",
			v.path, name, ErrUnknownVariable)
	}
	v.noflat[name] = val
	return nil
}

// Each calls fn for every flattenable variable in declaration order with a
// view of its current values. Read-only iteration for recorders.
func (v *Vector) Each(fn func(name string, value []float64)) {
	for _, name := range v.order {
		s := v.spans[name]
		fn(name, v.buf[s.start:s.end])
	}
}

// Norm returns the 2-norm of the full distributed vector, not just the
// local slice. Collective: every rank of the communicator must call it.
func (v *Vector) Norm() (float64, error) {
	sumsq := 0.0
	for _, x := range v.buf {
		sumsq += x * x
	}
	total, err := v.comm.AllreduceSum(sumsq)
	if err != nil {
		return 0, fmt.Errorf("%s: norm reduction: %w", v.path, err)
	}
	return math.Sqrt(total), nil
}

// SrcVector holds the unknowns: one entry per unique output or state,
// declared once, authoritative on the owning rank.
type SrcVector struct {
	Vector
	sizes *SizeTable
}

// NewSrc creates an empty source vector for the system at path.
func NewSrc(path string, c comm.Communicator) *SrcVector {
	return &SrcVector{Vector: newVector(path, c)}
}

// Setup allocates the buffer from the flattenable subset of vars, in
// declaration order, and builds the size table by all-gather. Collective:
// every rank must call Setup with its own local sizes. Non-flattenable
// variables are kept in the opaque store when storeNoFlat is true.
func (v *SrcVector) Setup(vars *VarSet, storeNoFlat bool) error {
	for _, name := range vars.Names() {
		m, _ := vars.Meta(name)
		if m.NoFlat {
			v.meta[name] = m
			if storeNoFlat {
				v.noflat[name] = nil
			}
			continue
		}
		v.layout(name, m)
	}

	// Local row: one column per flattenable variable, declaration order.
	row := make([]int, len(v.order))
	for i, name := range v.order {
		row[i] = v.meta[name].Size
	}

	rows, err := v.comm.AllgatherInts(row)
	if err != nil {
		return fmt.Errorf("%s: size table exchange: %w", v.path, err)
	}
	// Overwrite our own row with the locally computed one so a loosely
	// ordered exchange can never leave a stale value behind.
	rows[v.comm.Rank()] = row

	v.sizes, err = NewSizeTable(rows)
	if err != nil {
		return fmt.Errorf("%s: size table: %w", v.path, err)
	}
	return nil
}

// Sizes returns the size table built during Setup.
func (v *SrcVector) Sizes() *SizeTable {
	return v.sizes
}

// GlobalIndices returns the application-numbering indices of name's slice
// in the full distributed vector. Fails for non-flattenable variables,
// which have no numeric indices.
func (v *SrcVector) GlobalIndices(name string) ([]int, error) {
	m, ok := v.meta[name]
	if !ok {
		return nil, fmt.Errorf("%s: variable %q: %w", v.path, name, ErrUnknownVariable)
	}
	if m.NoFlat {
		return nil, fmt.Errorf("%s: variable %q: %w", v.path, name, ErrNoFlatIndices)
	}
	if v.sizes == nil {
		return nil, fmt.Errorf("%s: %w", v.path, ErrNotSetup)
	}

	ivar := -1
	for i, n := range v.order {
		if n == name {
			ivar = i
			break
		}
	}
	rank := v.comm.Rank()
	start := v.sizes.VarBase(ivar) + v.sizes.PriorRanks(rank, ivar)

	idxs := make([]int, m.Size)
	for k := range idxs {
		idxs[k] = start + k
	}
	return idxs, nil
}

// TgtVector holds the parameters: one entry per input slot per consuming
// component. Values are never authoritative; they are always overwritten
// by a forward transfer from a source vector.
type TgtVector struct {
	Vector
	footprints []int // per-rank sum of owned flattenable parameter sizes
}

// NewTgt creates an empty target vector for the system at path.
func NewTgt(path string, c comm.Communicator) *TgtVector {
	return &TgtVector{Vector: newVector(path, c)}
}

// Setup allocates buffer slots for the flattenable parameters this rank
// owns, in declaration order. parent is the enclosing system's parameter
// vector, or nil at the top; opaque values already held there are
// inherited. myParams lists the absolute names owned locally; conns maps
// each target name to its source. Non-flattenable parameters seed the
// opaque store from parent or srcvec when storeNoFlat is true. Collective:
// the per-rank footprint is all-gathered for parent sizing.
func (v *TgtVector) Setup(parent *TgtVector, params *VarSet, srcvec *SrcVector,
	myParams []string, conns map[string]string, storeNoFlat bool) error {

	owned := make(map[string]bool, len(myParams))
	for _, name := range myParams {
		owned[name] = true
	}

	for _, name := range params.Names() {
		m, _ := params.Meta(name)
		m.Owned = owned[name]
		if m.NoFlat {
			v.meta[name] = m
			if storeNoFlat {
				v.noflat[name] = nil
				if parent != nil {
					if val, ok := parent.NoFlat(name); ok && val != nil {
						v.noflat[name] = val
					}
				}
				if v.noflat[name] == nil {
					if src, ok := conns[name]; ok {
						val, _ := srcvec.NoFlat(src)
						v.noflat[name] = val
					}
				}
			}
			continue
		}
		if !m.Owned {
			// Remote-sourced slot lives in the owning rank's buffer.
			v.meta[name] = m
			continue
		}
		v.layout(name, m)
	}

	// Targets are singly owned, so ranks only exchange their total local
	// footprint, not a per-variable row.
	rows, err := v.comm.AllgatherInts([]int{len(v.buf)})
	if err != nil {
		return fmt.Errorf("%s: footprint exchange: %w", v.path, err)
	}
	v.footprints = make([]int, len(rows))
	for r, row := range rows {
		if len(row) != 1 {
			return fmt.Errorf("%s: rank %d sent %d footprint entries: %w",
				v.path, r, len(row), ErrRaggedSizeTable)
		}
		v.footprints[r] = row[0]
	}
	v.footprints[v.comm.Rank()] = len(v.buf)
	return nil
}

// Footprints returns the per-rank local buffer sizes gathered at Setup.
func (v *TgtVector) Footprints() []int {
	return append([]int(nil), v.footprints...)
}
