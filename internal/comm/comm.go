// Package comm provides the communicator abstraction used by the
// distributed vector and transfer layers.
//
// A Communicator exposes the rank/size of a process group plus the four
// collective primitives the layers above need: a 1-D all-gather, two
// all-to-all exchanges (one for static index lists, one for values), and a
// scalar sum reduction. Every collective must be entered by all ranks of
// the group; a rank that does not participate blocks the others, which is
// a configuration fault, not a recoverable condition.
package comm

import (
	"errors"
	"fmt"
)

// ErrCollectiveMismatch reports that two ranks entered different
// collectives at the same point, which would otherwise corrupt data
// silently.
var ErrCollectiveMismatch = errors.New("ranks entered mismatched collective operations")

// Communicator is the contract between a process group and the vector and
// transfer layers. Implementations must be deterministic: the result of a
// collective depends only on the inputs of the participating ranks.
//
// All collectives are synchronous from the caller's point of view: when a
// call returns, every contribution from every rank has been applied.
type Communicator interface {
	// Rank returns this process's index within the group, in [0, Size).
	Rank() int

	// Size returns the number of ranks in the group.
	Size() int

	// AllgatherInts gathers one integer row from every rank. The result
	// has Size() rows; row r is rank r's contribution. Rows may have
	// differing lengths.
	AllgatherInts(row []int) ([][]int, error)

	// AlltoallInts delivers sends[r] to rank r and returns the slices
	// this rank received, indexed by sending rank. len(sends) must equal
	// Size(); empty slices are valid.
	AlltoallInts(sends [][]int) ([][]int, error)

	// AlltoallFloats is AlltoallInts for float64 payloads. It backs the
	// indexed scatter and accumulate operations.
	AlltoallFloats(sends [][]float64) ([][]float64, error)

	// AllreduceSum returns the sum of x over all ranks.
	AllreduceSum(x float64) (float64, error)
}

func checkSends(n, size int) error {
	if n != size {
		return fmt.Errorf("alltoall: got %d send buffers for %d ranks", n, size)
	}
	return nil
}
