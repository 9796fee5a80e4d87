// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package comm provides the public communicator API for the Helio MDO
// framework.
//
// A Communicator carries a process group's rank and size plus the four
// collective primitives the vector and transfer layers need. Any parallel
// communication substrate providing these primitives is substitutable;
// the package ships a serial communicator and an in-process group for
// multi-rank runs inside one OS process.
//
// Example:
//
//	g := comm.NewGroup(4)
//	var eg errgroup.Group
//	for r := 0; r < g.Size(); r++ {
//	    c := g.Local(r)
//	    eg.Go(func() error { return runRank(c) })
//	}
//	err := eg.Wait()
package comm

import (
	"github.com/helio-mdo/helio/internal/comm"
)

// Communicator is the contract between a process group and the layers
// above. All collectives must be entered by every rank of the group.
type Communicator = comm.Communicator

// Serial is the single-process communicator.
type Serial = comm.Serial

// NewSerial returns a communicator for a group of one.
func NewSerial() *Serial {
	return comm.NewSerial()
}

// Group is an in-process communicator mesh over goroutine ranks.
type Group = comm.Group

// NewGroup creates an in-process group of n ranks.
func NewGroup(n int) *Group {
	return comm.NewGroup(n)
}

// Local is one rank's view of a Group.
type Local = comm.Local

// ErrCollectiveMismatch reports ranks entering different collectives at
// the same point.
var ErrCollectiveMismatch = comm.ErrCollectiveMismatch
