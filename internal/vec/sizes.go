package vec

import "fmt"

// SizeTable is the rank × variable matrix of local element counts for the
// flattenable variables of a source vector, in declaration order. Every
// rank holds the full table after construction, so downstream consumers
// (the application ordering, ownership lookups) never need further
// communication. The table is rebuilt whole whenever the variable set
// changes; it is never patched in place.
type SizeTable struct {
	sizes  [][]int // sizes[rank][ivar]
	totals []int   // per-rank totals
	starts []int   // canonical start offset per rank
}

// NewSizeTable builds a table from one row per rank. Rows must all have
// the same number of columns; the matrix is copied as given, so callers
// gathering rows must overwrite their own row before constructing.
func NewSizeTable(rows [][]int) (*SizeTable, error) {
	nvars := -1
	for r, row := range rows {
		if nvars == -1 {
			nvars = len(row)
		} else if len(row) != nvars {
			return nil, fmt.Errorf("rank %d reported %d variables, rank 0 reported %d: %w",
				r, len(row), nvars, ErrRaggedSizeTable)
		}
	}

	t := &SizeTable{
		sizes:  rows,
		totals: make([]int, len(rows)),
		starts: make([]int, len(rows)+1),
	}
	for r, row := range rows {
		for _, sz := range row {
			t.totals[r] += sz
		}
		t.starts[r+1] = t.starts[r] + t.totals[r]
	}
	return t, nil
}

// NumRanks returns the number of rows.
func (t *SizeTable) NumRanks() int { return len(t.sizes) }

// NumVars returns the number of columns.
func (t *SizeTable) NumVars() int {
	if len(t.sizes) == 0 {
		return 0
	}
	return len(t.sizes[0])
}

// Size returns rank's local element count for variable column ivar.
func (t *SizeTable) Size(rank, ivar int) int { return t.sizes[rank][ivar] }

// RankTotal returns the total element count contributed by rank.
func (t *SizeTable) RankTotal(rank int) int { return t.totals[rank] }

// RankStart returns rank's start offset in the canonical numbering, i.e.
// the sum of all sizes contributed by ranks before it.
func (t *SizeTable) RankStart(rank int) int { return t.starts[rank] }

// Total returns the size of the full distributed vector.
func (t *SizeTable) Total() int { return t.starts[len(t.sizes)] }

// VarBase returns the start of variable column ivar in the application
// numbering: the sum of every rank's contribution to all earlier columns.
func (t *SizeTable) VarBase(ivar int) int {
	base := 0
	for r := range t.sizes {
		for i := 0; i < ivar; i++ {
			base += t.sizes[r][i]
		}
	}
	return base
}

// PriorRanks returns the contribution of ranks before rank to column ivar.
func (t *SizeTable) PriorRanks(rank, ivar int) int {
	n := 0
	for r := 0; r < rank; r++ {
		n += t.sizes[r][ivar]
	}
	return n
}
