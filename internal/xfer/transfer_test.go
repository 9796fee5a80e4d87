package xfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/order"
	"github.com/helio-mdo/helio/internal/vec"
	"github.com/helio-mdo/helio/internal/xfer"
)

// fixture builds a serial source/target pair with one flattenable variable
// of size n on each side, plus the ordering.
type fixture struct {
	src *vec.SrcVector
	tgt *vec.TgtVector
	ao  *order.Ordering
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	c := comm.NewSerial()

	unknowns := vec.NewVarSet()
	require.NoError(t, unknowns.Add("comp1.out", vec.Meta{Size: n, Owned: true}))
	src := vec.NewSrc("top", c)
	require.NoError(t, src.Setup(unknowns, true))

	params := vec.NewVarSet()
	require.NoError(t, params.Add("comp2.in", vec.Meta{Size: n}))
	tgt := vec.NewTgt("top", c)
	conns := map[string]string{"comp2.in": "comp1.out"}
	require.NoError(t, tgt.Setup(nil, params, src, []string{"comp2.in"}, conns, true))

	ao, err := order.New(src.Sizes())
	require.NoError(t, err)
	return &fixture{src: src, tgt: tgt, ao: ao}
}

// Copy fidelity: source [1,2,3,4] through src_idxs=[0,1,2,3],
// tgt_idxs=[2,3,0,1] must land values 1,2,3,4 at target indices 2,3,0,1.
func TestTransfer_ForwardCopyFidelity(t *testing.T) {
	f := newFixture(t, 4)
	copy(f.src.Buffer(), []float64{1, 2, 3, 4})

	xf, err := xfer.New("comp2", f.src.Comm(), f.ao,
		[]int{0, 1, 2, 3}, []int{2, 3, 0, 1}, nil, f.tgt)
	require.NoError(t, err)

	require.NoError(t, xf.Transfer(f.src, f.tgt, xfer.Forward))
	assert.Equal(t, []float64{3, 4, 1, 2}, f.tgt.Buffer())
}

// Forward mode overwrites; running it twice with an unchanged source must
// leave the target unchanged.
func TestTransfer_ForwardIdempotent(t *testing.T) {
	f := newFixture(t, 3)
	copy(f.src.Buffer(), []float64{7, 8, 9})

	xf, err := xfer.New("comp2", f.src.Comm(), f.ao,
		[]int{0, 1, 2}, []int{0, 1, 2}, nil, f.tgt)
	require.NoError(t, err)

	require.NoError(t, xf.Transfer(f.src, f.tgt, xfer.Forward))
	first := append([]float64(nil), f.tgt.Buffer()...)
	require.NoError(t, xf.Transfer(f.src, f.tgt, xfer.Forward))
	assert.Equal(t, first, f.tgt.Buffer())
}

// Reverse mode must sum at repeated source indices: two targets feeding
// source index 0 with adjoints 5 and 7 must add exactly 12, not 7 or 5.
func TestTransfer_ReverseAccumulates(t *testing.T) {
	f := newFixture(t, 2)

	xf, err := xfer.New("comp2", f.src.Comm(), f.ao,
		[]int{0, 0}, []int{0, 1}, nil, f.tgt)
	require.NoError(t, err)

	f.tgt.Buffer()[0] = 5
	f.tgt.Buffer()[1] = 7
	f.src.Buffer()[0] = 1 // pre-existing adjoint must be added to, not replaced

	require.NoError(t, xf.Transfer(f.src, f.tgt, xfer.Reverse))
	assert.Equal(t, 13.0, f.src.Buffer()[0])
	assert.Equal(t, 0.0, f.src.Buffer()[1])
}

// Forward then reverse over an invertible mapping must return the original
// tangent exactly.
func TestTransfer_RoundTrip(t *testing.T) {
	f := newFixture(t, 4)
	seed := []float64{0.5, -1.25, 2, 3.75}
	copy(f.src.Buffer(), seed)

	xf, err := xfer.New("comp2", f.src.Comm(), f.ao,
		[]int{0, 1, 2, 3}, []int{1, 0, 3, 2}, nil, f.tgt)
	require.NoError(t, err)

	require.NoError(t, xf.Transfer(f.src, f.tgt, xfer.Forward))

	back := newFixture(t, 4) // fresh accumulation target
	xf2, err := xfer.New("comp2", back.src.Comm(), back.ao,
		[]int{0, 1, 2, 3}, []int{1, 0, 3, 2}, nil, f.tgt)
	require.NoError(t, err)

	require.NoError(t, xf2.Transfer(back.src, f.tgt, xfer.Reverse))
	assert.Equal(t, seed, back.src.Buffer())
}

func TestTransfer_NoFlatConnections(t *testing.T) {
	unknowns := vec.NewVarSet()
	require.NoError(t, unknowns.Add("comp1.out", vec.Meta{Size: 1, Owned: true}))
	require.NoError(t, unknowns.Add("comp1.mesh", vec.Meta{NoFlat: true, Owned: true}))
	src := vec.NewSrc("top", comm.NewSerial())
	require.NoError(t, src.Setup(unknowns, true))
	require.NoError(t, src.SetNoFlat("comp1.mesh", []string{"tri", "quad"}))

	params := vec.NewVarSet()
	require.NoError(t, params.Add("comp2.in", vec.Meta{Size: 1}))
	require.NoError(t, params.Add("comp2.mesh", vec.Meta{NoFlat: true}))
	tgt := vec.NewTgt("top", src.Comm())
	conns := map[string]string{"comp2.in": "comp1.out", "comp2.mesh": "comp1.mesh"}
	require.NoError(t, tgt.Setup(nil, params, src, []string{"comp2.in", "comp2.mesh"}, conns, true))

	ao, err := order.New(src.Sizes())
	require.NoError(t, err)

	noflat := []xfer.Connection{{Src: "comp1.mesh", Tgt: "comp2.mesh"}}
	xf, err := xfer.New("comp2", src.Comm(), ao, []int{0}, []int{0}, noflat, tgt)
	require.NoError(t, err)

	src.Buffer()[0] = 3.5
	require.NoError(t, xf.Transfer(src, tgt, xfer.Forward))

	assert.Equal(t, 3.5, tgt.Buffer()[0])
	val, ok := tgt.NoFlat("comp2.mesh")
	require.True(t, ok)
	assert.Equal(t, []string{"tri", "quad"}, val)

	// Opaque variables have no adjoint: reverse must not touch them.
	require.NoError(t, tgt.SetNoFlat("comp2.mesh", "overwritten"))
	require.NoError(t, xf.Transfer(src, tgt, xfer.Reverse))
	val, _ = tgt.NoFlat("comp2.mesh")
	assert.Equal(t, "overwritten", val)
}

func TestTransfer_ConfigErrors(t *testing.T) {
	f := newFixture(t, 2)

	_, err := xfer.New("badcomp", f.src.Comm(), f.ao, []int{0, 1}, []int{0}, nil, f.tgt)
	require.Error(t, err)
	var cfgErr *xfer.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "badcomp", cfgErr.Component)

	_, err = xfer.New("badcomp", f.src.Comm(), f.ao, []int{0}, []int{5}, nil, f.tgt)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "badcomp")

	_, err = xfer.New("badcomp", f.src.Comm(), f.ao, []int{9}, []int{0}, nil, f.tgt)
	require.ErrorAs(t, err, &cfgErr)
}

// Two ranks, two variables, one parameter per rank sourced from the other
// rank's slice. Variable a is split across ranks, so the application and
// canonical numberings differ and the transfer must route cross-rank.
func TestTransfer_CrossRank(t *testing.T) {
	// Rank-local source values: rank0 holds a0=1, b0=2; rank1 holds
	// a1=3, b1=4. Application numbering: a0=0 a1=1 b0=2 b1=3.
	fwdGot := make([]float64, 2)   // forward result per rank
	revGot := make([][]float64, 2) // source adjoints per rank

	g := comm.NewGroup(2)
	var eg errgroup.Group
	for r := 0; r < 2; r++ {
		c := g.Local(r)
		eg.Go(func() error {
			rank := c.Rank()

			unknowns := vec.NewVarSet()
			if err := unknowns.Add("a", vec.Meta{Size: 1, Owned: true}); err != nil {
				return err
			}
			if err := unknowns.Add("b", vec.Meta{Size: 1, Owned: true}); err != nil {
				return err
			}
			src := vec.NewSrc("top", c)
			if err := src.Setup(unknowns, false); err != nil {
				return err
			}
			src.Buffer()[0] = float64(1 + 2*rank) // a on this rank
			src.Buffer()[1] = float64(2 + 2*rank) // b on this rank

			params := vec.NewVarSet()
			if err := params.Add("p", vec.Meta{Size: 1}); err != nil {
				return err
			}
			tgt := vec.NewTgt("top", c)
			conns := map[string]string{"p": "a"}
			if err := tgt.Setup(nil, params, src, []string{"p"}, conns, false); err != nil {
				return err
			}

			ao, err := order.New(src.Sizes())
			if err != nil {
				return err
			}

			// Rank 0's p reads a1 (app idx 1, owned by rank 1);
			// rank 1's p reads b0 (app idx 2, owned by rank 0).
			srcIdxs := []int{1}
			if rank == 1 {
				srcIdxs = []int{2}
			}
			xf, err := xfer.New("p", c, ao, srcIdxs, []int{0}, nil, tgt)
			if err != nil {
				return err
			}

			if err := xf.Transfer(src, tgt, xfer.Forward); err != nil {
				return err
			}
			fwdGot[rank] = tgt.Buffer()[0]

			// Reverse: seed the target adjoint with 10+rank and push
			// it back onto a fresh source-side accumulator.
			dsrc := vec.NewSrc("top", c)
			if err := dsrc.Setup(unknowns, false); err != nil {
				return err
			}
			tgt.Buffer()[0] = float64(10 + rank)
			if err := xf.Transfer(dsrc, tgt, xfer.Reverse); err != nil {
				return err
			}
			revGot[rank] = append([]float64(nil), dsrc.Buffer()...)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	// Forward: rank0 read a1=3, rank1 read b0=2.
	assert.Equal(t, 3.0, fwdGot[0])
	assert.Equal(t, 2.0, fwdGot[1])

	// Reverse: rank1's adjoint 10 (sent by rank0) lands on a1; rank0's
	// b0 receives 11 (sent by rank1).
	assert.Equal(t, []float64{0, 11}, revGot[0]) // rank0 buffer = [a0, b0]
	assert.Equal(t, []float64{10, 0}, revGot[1]) // rank1 buffer = [a1, b1]
}
