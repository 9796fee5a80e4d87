// Package linop defines the per-component linear-operator contract the
// transfer layer composes across a graph: given forward or reverse mode,
// read one buffer pair and accumulate into another, with the pair roles
// selected by the mode rather than by implicit reassignment.
package linop

import (
	"fmt"

	"github.com/helio-mdo/helio/internal/vec"
	"github.com/helio-mdo/helio/internal/xfer"
)

// Operator is the obligation every component fulfills for derivative
// propagation. params and unknowns carry the nonlinear point; dparams,
// dunknowns and dresids carry the tangents or adjoints being moved.
//
// In forward mode the (dunknowns, dresids) pair plays the (solution, rhs)
// roles; in reverse mode the roles swap between the same two vectors. Use
// SolutionRHS to select the pair. An implementation must only touch the
// slices of its own variables: the union of all components' local
// contributions, combined through the transfer layer's accumulation, is
// the full graph's linear operator.
type Operator interface {
	ApplyLinear(params *vec.TgtVector, unknowns *vec.SrcVector,
		dparams *vec.TgtVector, dunknowns, dresids *vec.SrcVector, mode xfer.Mode) error
}

// SolutionRHS returns the (solution, rhs) buffer pair for mode: forward
// reads dunknowns and accumulates into dresids, reverse swaps them.
func SolutionRHS(dunknowns, dresids *vec.SrcVector, mode xfer.Mode) (sol, rhs *vec.SrcVector) {
	if mode == xfer.Reverse {
		return dresids, dunknowns
	}
	return dunknowns, dresids
}

// Identity is the pass-through operator used by pure output-providing
// components: rhs += solution over the component's own slices only. It is
// the minimal valid implementation of the contract.
type Identity struct {
	vars []string
}

// NewIdentity creates an identity operator over the named output
// variables.
func NewIdentity(vars ...string) *Identity {
	return &Identity{vars: append([]string(nil), vars...)}
}

// ApplyLinear accumulates the solution slice into the rhs slice for each
// of the operator's own variables, element-wise, in both modes.
func (op *Identity) ApplyLinear(_ *vec.TgtVector, _ *vec.SrcVector,
	_ *vec.TgtVector, dunknowns, dresids *vec.SrcVector, mode xfer.Mode) error {

	sol, rhs := SolutionRHS(dunknowns, dresids, mode)
	for _, name := range op.vars {
		s, err := sol.Slice(name)
		if err != nil {
			return fmt.Errorf("identity operator: %w", err)
		}
		r, err := rhs.Slice(name)
		if err != nil {
			return fmt.Errorf("identity operator: %w", err)
		}
		if len(s) != len(r) {
			return fmt.Errorf("identity operator: variable %q: solution slice length %d != rhs slice length %d",
				name, len(s), len(r))
		}
		for i := range r {
			r[i] += s[i]
		}
	}
	return nil
}
