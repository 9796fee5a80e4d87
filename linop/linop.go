// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linop provides the public linear-operator contract for the
// Helio MDO framework: the forward/reverse derivative application every
// component must expose for the transfer layer to compose a whole graph's
// linear operator.
package linop

import (
	"github.com/helio-mdo/helio/internal/linop"
	"github.com/helio-mdo/helio/internal/vec"
	"github.com/helio-mdo/helio/internal/xfer"
)

// Operator is the per-component linear-operator obligation.
type Operator = linop.Operator

// SolutionRHS returns the (solution, rhs) buffer pair for mode.
func SolutionRHS(dunknowns, dresids *vec.SrcVector, mode xfer.Mode) (sol, rhs *vec.SrcVector) {
	return linop.SolutionRHS(dunknowns, dresids, mode)
}

// Identity is the pass-through operator used by pure output-providing
// components.
type Identity = linop.Identity

// NewIdentity creates an identity operator over the named output
// variables.
//
// Example:
//
//	op := linop.NewIdentity("comp1.out")
//	err := op.ApplyLinear(params, unknowns, dparams, dunknowns, dresids, xfer.Forward)
func NewIdentity(vars ...string) *Identity {
	return linop.NewIdentity(vars...)
}
