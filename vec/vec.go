// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vec provides the public API for distributed variable vectors in
// the Helio MDO framework.
//
// A variable vector stores the process-local flattened values of a named,
// ordered set of variables in one contiguous buffer and tracks the mapping
// from variable name to buffer offset. Two variants exist:
//   - SrcVector: one entry per unique output/state, authoritative
//   - TgtVector: one entry per input slot per consuming component, always
//     populated by transfer from a source
//
// Example:
//
//	c := comm.NewSerial()
//	vars := vec.NewVarSet()
//	vars.Add("comp1.x", vec.Meta{Size: 3, Owned: true})
//	unknowns := vec.NewSrc("top", c)
//	unknowns.Setup(vars, false)
//	norm, _ := unknowns.Norm()
package vec

import (
	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/vec"
)

// Meta is the fixed per-variable metadata record: flattened size, the
// non-flattenable flag, and the ownership flag.
type Meta = vec.Meta

// VarSet is an ordered set of variable declarations. Declaration order
// determines buffer slice offsets.
type VarSet = vec.VarSet

// NewVarSet returns an empty variable set.
func NewVarSet() *VarSet {
	return vec.NewVarSet()
}

// Vector is the shared core of the two vector variants.
type Vector = vec.Vector

// SrcVector holds the unknowns of a system.
type SrcVector = vec.SrcVector

// NewSrc creates an empty source vector for the system at path.
//
// Example:
//
//	unknowns := vec.NewSrc("top", c)
//	unknowns.Setup(vars, true)
func NewSrc(path string, c comm.Communicator) *SrcVector {
	return vec.NewSrc(path, c)
}

// TgtVector holds the parameters of a system.
type TgtVector = vec.TgtVector

// NewTgt creates an empty target vector for the system at path.
func NewTgt(path string, c comm.Communicator) *TgtVector {
	return vec.NewTgt(path, c)
}

// SizeTable is the rank × variable matrix of local element counts.
type SizeTable = vec.SizeTable

// NewSizeTable builds a table from one row per rank.
func NewSizeTable(rows [][]int) (*SizeTable, error) {
	return vec.NewSizeTable(rows)
}

// Common errors.
var (
	ErrUnknownVariable   = vec.ErrUnknownVariable
	ErrDuplicateVariable = vec.ErrDuplicateVariable
	ErrNoFlatIndices     = vec.ErrNoFlatIndices
	ErrNotSetup          = vec.ErrNotSetup
	ErrRaggedSizeTable   = vec.ErrRaggedSizeTable
)
