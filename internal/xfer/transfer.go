// Package xfer implements the data transfer between a distributed source
// vector and a distributed target vector: indexed scatter in forward mode,
// indexed accumulate in reverse mode, and by-name copies for the opaque
// (non-flattenable) connections.
package xfer

import (
	"fmt"

	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/order"
	"github.com/helio-mdo/helio/internal/vec"
)

// Mode selects the direction of a transfer or linear-operator application.
type Mode int

const (
	// Forward propagates values or tangents from sources to targets
	// with overwrite semantics.
	Forward Mode = iota

	// Reverse propagates adjoints from targets back to sources with
	// accumulate semantics: contributions at a repeated source index
	// must sum.
	Reverse
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case Forward:
		return "fwd"
	case Reverse:
		return "rev"
	default:
		return "unknown"
	}
}

// Connection is one declared source → target variable mapping.
type Connection struct {
	Src string
	Tgt string
}

// ConfigError reports a static structure mismatch found while building a
// transfer. It names the offending component; the topology is
// deterministic, so a retry would reproduce the same failure.
type ConfigError struct {
	Component string
	Detail    string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("transfer setup for %q: %s", e.Component, e.Detail)
}

// Transfer owns the immutable index arrays and the prebuilt routing plan
// for one connection set between a (source vector, target vector) pair.
// It is built once after the graph's connections are finalized and reused
// for every subsequent call; a structural change to the graph invalidates
// it and requires a full rebuild.
//
// A Transfer holds no mutable state, so it is safe to invoke repeatedly
// across iterations, but not from two call sites in the same process at
// once: there is no internal locking and the collective exchange must be
// entered in the same order on every rank.
type Transfer struct {
	comm comm.Communicator
	name string

	srcIdxs []int // canonical numbering, translated at construction
	tgtIdxs []int // local target-buffer offsets
	noflat  []Connection

	// Routing plan, fixed at construction.
	localSrc []int   // local source offsets paired with localTgt
	localTgt []int
	sendOffs [][]int // sendOffs[r]: local source offsets rank r reads from us
	recvTgt  [][]int // recvTgt[r]: target offsets for values arriving from rank r
}

// New builds the transfer for one connection set. srcIdxs are in
// application numbering and are translated through ao to canonical
// numbering before the plan is built; tgtIdxs stay in the local target
// numbering. noflat lists the connections moved by name instead of index.
// name identifies the owning component in configuration errors.
//
// Collective: all ranks exchange their static request lists here, so every
// rank must construct the transfer, even with empty index arrays.
func New(name string, c comm.Communicator, ao *order.Ordering,
	srcIdxs, tgtIdxs []int, noflat []Connection, tgt *vec.TgtVector) (*Transfer, error) {

	if len(srcIdxs) != len(tgtIdxs) {
		return nil, &ConfigError{Component: name, Detail: fmt.Sprintf(
			"source and target index arrays differ in length: %d vs %d",
			len(srcIdxs), len(tgtIdxs))}
	}
	for _, ti := range tgtIdxs {
		if ti < 0 || ti >= tgt.Len() {
			return nil, &ConfigError{Component: name, Detail: fmt.Sprintf(
				"target index %d out of range for target vector of size %d", ti, tgt.Len())}
		}
	}

	canon, err := ao.ToCanonical(srcIdxs)
	if err != nil {
		return nil, &ConfigError{Component: name, Detail: fmt.Sprintf(
			"source index translation failed (src_idxs=%v): %v", srcIdxs, err)}
	}

	t := &Transfer{
		comm:    c,
		name:    name,
		srcIdxs: canon,
		tgtIdxs: append([]int(nil), tgtIdxs...),
		noflat:  append([]Connection(nil), noflat...),
	}

	// Split the connection elements into locally resolvable pairs and
	// per-owner request lists.
	me := c.Rank()
	needs := make([][]int, c.Size())
	t.recvTgt = make([][]int, c.Size())
	for k, ci := range canon {
		r, off, err := ao.Owner(ci)
		if err != nil {
			return nil, &ConfigError{Component: name, Detail: err.Error()}
		}
		if r == me {
			t.localSrc = append(t.localSrc, off)
			t.localTgt = append(t.localTgt, tgtIdxs[k])
			continue
		}
		needs[r] = append(needs[r], ci)
		t.recvTgt[r] = append(t.recvTgt[r], tgtIdxs[k])
	}

	// One static exchange: every rank learns which of its local source
	// elements each peer will read, in the peer's order of appearance.
	requested, err := c.AlltoallInts(needs)
	if err != nil {
		return nil, &ConfigError{Component: name, Detail: fmt.Sprintf(
			"request exchange failed: %v", err)}
	}
	t.sendOffs = make([][]int, c.Size())
	for q, idxs := range requested {
		if q == me {
			continue
		}
		offs := make([]int, len(idxs))
		for j, ci := range idxs {
			r, off, err := ao.Owner(ci)
			if err != nil || r != me {
				return nil, &ConfigError{Component: name, Detail: fmt.Sprintf(
					"rank %d requested canonical index %d not owned by rank %d", q, ci, me)}
			}
			offs[j] = off
		}
		t.sendOffs[q] = offs
	}
	return t, nil
}

// Transfer moves data between src and tgt for this connection set.
//
// Forward mode overwrites: tgt[tgt_idx] = src[src_idx] for every pair, and
// each opaque connection is copied by name. Each target index appears at
// most once across the connections into a target vector, so repeated
// forward transfers with an unchanged source are idempotent.
//
// Reverse mode accumulates: src[src_idx] += tgt[tgt_idx], with true
// sum-at-repeated-index semantics, because one source element may feed
// several targets and a plain indexed assignment would drop all but one
// adjoint contribution. Opaque connections are never transferred in
// reverse; they have no meaningful adjoint.
//
// Collective: every rank of the communicator must call Transfer with the
// same mode at the same point.
func (t *Transfer) Transfer(src *vec.SrcVector, tgt *vec.TgtVector, mode Mode) error {
	switch mode {
	case Forward:
		return t.forward(src, tgt)
	case Reverse:
		return t.reverse(src, tgt)
	default:
		return fmt.Errorf("transfer for %q: unknown mode %d", t.name, int(mode))
	}
}

func (t *Transfer) forward(src *vec.SrcVector, tgt *vec.TgtVector) error {
	sbuf, tbuf := src.Buffer(), tgt.Buffer()

	// Remote elements: owners read the offsets each peer requested at
	// construction and ship the values in the agreed order.
	sends := make([][]float64, t.comm.Size())
	for q, offs := range t.sendOffs {
		if len(offs) == 0 {
			continue
		}
		vals := make([]float64, len(offs))
		for j, off := range offs {
			vals[j] = sbuf[off]
		}
		sends[q] = vals
	}
	recvd, err := t.comm.AlltoallFloats(sends)
	if err != nil {
		return fmt.Errorf("forward transfer for %q: %w", t.name, err)
	}

	for i, off := range t.localSrc {
		tbuf[t.localTgt[i]] = sbuf[off]
	}
	for r, vals := range recvd {
		if r == t.comm.Rank() {
			continue
		}
		if len(vals) != len(t.recvTgt[r]) {
			return fmt.Errorf("forward transfer for %q: rank %d sent %d values, expected %d",
				t.name, r, len(vals), len(t.recvTgt[r]))
		}
		for j, val := range vals {
			tbuf[t.recvTgt[r][j]] = val
		}
	}

	for _, conn := range t.noflat {
		val, ok := src.NoFlat(conn.Src)
		if !ok {
			return fmt.Errorf("forward transfer for %q: no stored value for non-flattenable source %q",
				t.name, conn.Src)
		}
		if err := tgt.SetNoFlat(conn.Tgt, val); err != nil {
			return fmt.Errorf("forward transfer for %q: %w", t.name, err)
		}
	}
	return nil
}

func (t *Transfer) reverse(src *vec.SrcVector, tgt *vec.TgtVector) error {
	sbuf, tbuf := src.Buffer(), tgt.Buffer()

	// Adjoints flow back along the same routes: target holders read the
	// offsets they were fed in forward mode and ship them to the source
	// owners.
	sends := make([][]float64, t.comm.Size())
	for r, offs := range t.recvTgt {
		if len(offs) == 0 {
			continue
		}
		vals := make([]float64, len(offs))
		for j, off := range offs {
			vals[j] = tbuf[off]
		}
		sends[r] = vals
	}
	recvd, err := t.comm.AlltoallFloats(sends)
	if err != nil {
		return fmt.Errorf("reverse transfer for %q: %w", t.name, err)
	}

	// += throughout: sendOffs and localSrc may repeat an offset when one
	// output feeds several inputs, and those contributions must sum.
	for i, off := range t.localSrc {
		sbuf[off] += tbuf[t.localTgt[i]]
	}
	for q, vals := range recvd {
		if q == t.comm.Rank() {
			continue
		}
		if len(vals) != len(t.sendOffs[q]) {
			return fmt.Errorf("reverse transfer for %q: rank %d sent %d values, expected %d",
				t.name, q, len(vals), len(t.sendOffs[q]))
		}
		for j, val := range vals {
			sbuf[t.sendOffs[q][j]] += val
		}
	}
	return nil
}
