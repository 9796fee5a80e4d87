package comm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/helio-mdo/helio/internal/comm"
)

func TestSerial_Basics(t *testing.T) {
	c := comm.NewSerial()

	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())

	rows, err := c.AllgatherInts([]int{3, 1, 4})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{3, 1, 4}}, rows)

	sum, err := c.AllreduceSum(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, sum)

	out, err := c.AlltoallFloats([][]float64{{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}}, out)
}

func TestSerial_AlltoallWrongSendCount(t *testing.T) {
	c := comm.NewSerial()

	_, err := c.AlltoallInts([][]int{{1}, {2}})
	assert.Error(t, err)
}

// runGroup runs body on every rank of a fresh n-rank group and fails the
// test if any rank errors.
func runGroup(t *testing.T, n int, body func(c *comm.Local) error) {
	t.Helper()
	g := comm.NewGroup(n)

	var eg errgroup.Group
	for r := 0; r < n; r++ {
		c := g.Local(r)
		eg.Go(func() error { return body(c) })
	}
	require.NoError(t, eg.Wait())
}

func TestGroup_AllgatherInts(t *testing.T) {
	runGroup(t, 3, func(c *comm.Local) error {
		rows, err := c.AllgatherInts([]int{c.Rank(), c.Rank() * 10})
		if err != nil {
			return err
		}
		for r := 0; r < 3; r++ {
			assert.Equal(t, []int{r, r * 10}, rows[r], "row %d on rank %d", r, c.Rank())
		}
		return nil
	})
}

func TestGroup_AlltoallInts(t *testing.T) {
	runGroup(t, 3, func(c *comm.Local) error {
		// Rank r sends {r, to} to rank "to".
		sends := make([][]int, 3)
		for to := range sends {
			sends[to] = []int{c.Rank(), to}
		}
		out, err := c.AlltoallInts(sends)
		if err != nil {
			return err
		}
		for from := 0; from < 3; from++ {
			assert.Equal(t, []int{from, c.Rank()}, out[from])
		}
		return nil
	})
}

func TestGroup_AlltoallFloats_EmptySends(t *testing.T) {
	runGroup(t, 2, func(c *comm.Local) error {
		out, err := c.AlltoallFloats(make([][]float64, 2))
		if err != nil {
			return err
		}
		for _, vals := range out {
			assert.Empty(t, vals)
		}
		return nil
	})
}

func TestGroup_AllreduceSum(t *testing.T) {
	runGroup(t, 4, func(c *comm.Local) error {
		sum, err := c.AllreduceSum(float64(c.Rank() + 1))
		if err != nil {
			return err
		}
		assert.Equal(t, 10.0, sum) // 1+2+3+4
		return nil
	})
}

// Successive collectives must stay matched without an explicit barrier.
func TestGroup_BackToBackCollectives(t *testing.T) {
	runGroup(t, 3, func(c *comm.Local) error {
		for i := 0; i < 50; i++ {
			sum, err := c.AllreduceSum(1)
			if err != nil {
				return err
			}
			assert.Equal(t, 3.0, sum)
		}
		return nil
	})
}

func TestGroup_CollectiveMismatchDetected(t *testing.T) {
	g := comm.NewGroup(2)

	var eg errgroup.Group
	errs := make([]error, 2)
	eg.Go(func() error {
		_, errs[0] = g.Local(0).AllgatherInts([]int{1})
		return nil
	})
	eg.Go(func() error {
		_, errs[1] = g.Local(1).AllreduceSum(1)
		return nil
	})
	require.NoError(t, eg.Wait())

	for r, err := range errs {
		assert.ErrorIs(t, err, comm.ErrCollectiveMismatch, "rank %d", r)
	}
}
