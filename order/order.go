// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package order provides the public application-ordering API for the
// Helio MDO framework: the bijection between a distributed source vector's
// variable-major application numbering and the rank-major canonical
// numbering used by the transfer layer.
package order

import (
	"github.com/helio-mdo/helio/internal/order"
	"github.com/helio-mdo/helio/internal/vec"
)

// Ordering is an immutable bidirectional translation table. Rebuild it
// from a fresh size table after any topology change.
type Ordering = order.Ordering

// New builds the ordering from a source vector's size table.
//
// Example:
//
//	ao, err := order.New(unknowns.Sizes())
func New(t *vec.SizeTable) (*Ordering, error) {
	return order.New(t)
}
