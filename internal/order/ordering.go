// Package order implements the application ordering: the fixed bijection
// between the variable-major "application" numbering of a distributed
// source vector and the rank-major canonical numbering the transfer layer
// scatters with.
//
// Application numbering concatenates each variable's slices across all
// ranks, variable by variable in declaration order. Canonical numbering
// concatenates each rank's whole local buffer, rank by rank. Both number
// the same elements, so a size table determines the bijection completely
// and every rank can build it without further communication.
//
// An Ordering is immutable. If any variable's size or ownership changes,
// the size table must be rebuilt and a new Ordering constructed; reusing a
// stale one is a programmer error with undefined translation.
package order

import (
	"fmt"
	"sort"

	"github.com/helio-mdo/helio/internal/vec"
)

// Ordering is a bidirectional translation table between application and
// canonical numbering over [0, Len()).
type Ordering struct {
	appToCanon []int
	canonToApp []int
	starts     []int // canonical start per rank, with the total appended
}

// New builds the ordering from a source vector's size table.
func New(t *vec.SizeTable) (*Ordering, error) {
	n := t.Total()
	o := &Ordering{
		appToCanon: make([]int, n),
		canonToApp: make([]int, n),
		starts:     make([]int, t.NumRanks()+1),
	}
	for i := range o.appToCanon {
		o.appToCanon[i] = -1
		o.canonToApp[i] = -1
	}

	for r := 0; r < t.NumRanks(); r++ {
		o.starts[r] = t.RankStart(r)
		// Canonical offsets advance through rank r's local buffer in
		// its natural layout: variable by variable, declared order.
		canon := t.RankStart(r)
		for i := 0; i < t.NumVars(); i++ {
			app := t.VarBase(i) + t.PriorRanks(r, i)
			for k := 0; k < t.Size(r, i); k++ {
				o.appToCanon[app+k] = canon
				o.canonToApp[canon] = app + k
				canon++
			}
		}
	}
	o.starts[t.NumRanks()] = n

	for i := 0; i < n; i++ {
		if o.appToCanon[i] < 0 || o.canonToApp[i] < 0 {
			return nil, fmt.Errorf("ordering is not a bijection: index %d unmapped", i)
		}
	}
	return o, nil
}

// Len returns the size of the numbered domain.
func (o *Ordering) Len() int { return len(o.appToCanon) }

// ToCanonical translates application indices to canonical indices.
func (o *Ordering) ToCanonical(app []int) ([]int, error) {
	out := make([]int, len(app))
	for i, a := range app {
		if a < 0 || a >= len(o.appToCanon) {
			return nil, fmt.Errorf("application index %d out of range [0,%d)", a, len(o.appToCanon))
		}
		out[i] = o.appToCanon[a]
	}
	return out, nil
}

// ToApplication translates canonical indices to application indices.
func (o *Ordering) ToApplication(canon []int) ([]int, error) {
	out := make([]int, len(canon))
	for i, c := range canon {
		if c < 0 || c >= len(o.canonToApp) {
			return nil, fmt.Errorf("canonical index %d out of range [0,%d)", c, len(o.canonToApp))
		}
		out[i] = o.canonToApp[c]
	}
	return out, nil
}

// Owner returns the rank owning a canonical index and the index's offset
// in that rank's local buffer.
func (o *Ordering) Owner(canon int) (rank, offset int, err error) {
	if canon < 0 || canon >= len(o.canonToApp) {
		return 0, 0, fmt.Errorf("canonical index %d out of range [0,%d)", canon, len(o.canonToApp))
	}
	// starts is sorted; find the last rank whose start is <= canon.
	rank = sort.Search(len(o.starts), func(r int) bool { return o.starts[r] > canon }) - 1
	return rank, canon - o.starts[rank], nil
}
