// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package xfer provides the public data-transfer API for the Helio MDO
// framework.
//
// A Transfer owns the immutable index arrays for one connection set and a
// prebuilt cross-rank routing plan. Forward mode scatters source values
// onto target slots with overwrite semantics; reverse mode accumulates
// target adjoints back onto source slots with sum-at-repeated-index
// semantics.
//
// Example:
//
//	ao, _ := order.New(unknowns.Sizes())
//	xf, err := xfer.New("comp2", c, ao, srcIdxs, tgtIdxs, noflat, params)
//	if err != nil {
//	    return err
//	}
//	xf.Transfer(unknowns, params, xfer.Forward)
package xfer

import (
	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/order"
	"github.com/helio-mdo/helio/internal/vec"
	"github.com/helio-mdo/helio/internal/xfer"
)

// Mode selects the direction of a transfer.
type Mode = xfer.Mode

// Transfer directions.
const (
	Forward Mode = xfer.Forward
	Reverse Mode = xfer.Reverse
)

// Connection is one declared source → target variable mapping.
type Connection = xfer.Connection

// ConfigError reports a static structure mismatch found at construction,
// naming the offending component.
type ConfigError = xfer.ConfigError

// Transfer performs the scatter/accumulate for one connection set.
type Transfer = xfer.Transfer

// New builds the transfer for one connection set. Collective: every rank
// must construct it, even with empty index arrays.
func New(name string, c comm.Communicator, ao *order.Ordering,
	srcIdxs, tgtIdxs []int, noflat []Connection, tgt *vec.TgtVector) (*Transfer, error) {
	return xfer.New(name, c, ao, srcIdxs, tgtIdxs, noflat, tgt)
}
