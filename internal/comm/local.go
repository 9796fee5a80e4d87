package comm

import "fmt"

type opKind int

const (
	opAllgather opKind = iota
	opAlltoallInts
	opAlltoallFloats
	opAllreduce
)

func (k opKind) String() string {
	switch k {
	case opAllgather:
		return "AllgatherInts"
	case opAlltoallInts:
		return "AlltoallInts"
	case opAlltoallFloats:
		return "AlltoallFloats"
	case opAllreduce:
		return "AllreduceSum"
	default:
		return "Unknown"
	}
}

type message struct {
	kind   opKind
	ints   []int
	floats []float64
}

// Group is an in-process communicator mesh: every rank is a goroutine and
// every ordered rank pair is joined by a buffered channel. Collectives are
// implemented as send-to-all followed by receive-from-all; FIFO channel
// ordering keeps successive collectives matched without a barrier.
type Group struct {
	size  int
	chans [][]chan message // chans[from][to]
}

// NewGroup creates an in-process group of n ranks. Call Local(r) to obtain
// the handle each rank goroutine uses.
func NewGroup(n int) *Group {
	if n < 1 {
		panic(fmt.Sprintf("comm: group size must be >= 1, got %d", n))
	}
	chans := make([][]chan message, n)
	for from := range chans {
		chans[from] = make([]chan message, n)
		for to := range chans[from] {
			if from != to {
				// A rank can run at most one collective ahead of
				// its peers, so a small buffer avoids blocking.
				chans[from][to] = make(chan message, 4)
			}
		}
	}
	return &Group{size: n, chans: chans}
}

// Size returns the number of ranks in the group.
func (g *Group) Size() int { return g.size }

// Local returns rank's communicator handle. Each handle must be used by a
// single goroutine.
func (g *Group) Local(rank int) *Local {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0,%d)", rank, g.size))
	}
	return &Local{group: g, rank: rank}
}

// Local is one rank's view of a Group. It implements Communicator.
type Local struct {
	group *Group
	rank  int
}

// Rank returns this handle's rank within the group.
func (l *Local) Rank() int { return l.rank }

// Size returns the number of ranks in the group.
func (l *Local) Size() int { return l.group.size }

// exchange sends sendFor(r) to every other rank, then receives one message
// from every other rank, verifying all messages belong to the same
// collective.
func (l *Local) exchange(kind opKind, sendFor func(r int) message) ([]message, error) {
	g := l.group
	for r := 0; r < g.size; r++ {
		if r == l.rank {
			continue
		}
		g.chans[l.rank][r] <- sendFor(r)
	}

	recvd := make([]message, g.size)
	for r := 0; r < g.size; r++ {
		if r == l.rank {
			continue
		}
		m := <-g.chans[r][l.rank]
		if m.kind != kind {
			return nil, fmt.Errorf("rank %d got %s from rank %d during %s: %w",
				l.rank, m.kind, r, kind, ErrCollectiveMismatch)
		}
		recvd[r] = m
	}
	return recvd, nil
}

// AllgatherInts gathers one row from every rank.
func (l *Local) AllgatherInts(row []int) ([][]int, error) {
	own := append([]int(nil), row...)
	recvd, err := l.exchange(opAllgather, func(int) message {
		return message{kind: opAllgather, ints: own}
	})
	if err != nil {
		return nil, err
	}

	rows := make([][]int, l.group.size)
	for r := range rows {
		if r == l.rank {
			rows[r] = own
		} else {
			rows[r] = recvd[r].ints
		}
	}
	return rows, nil
}

// AlltoallInts delivers sends[r] to rank r.
func (l *Local) AlltoallInts(sends [][]int) ([][]int, error) {
	if err := checkSends(len(sends), l.group.size); err != nil {
		return nil, err
	}
	recvd, err := l.exchange(opAlltoallInts, func(r int) message {
		return message{kind: opAlltoallInts, ints: append([]int(nil), sends[r]...)}
	})
	if err != nil {
		return nil, err
	}

	out := make([][]int, l.group.size)
	for r := range out {
		if r == l.rank {
			out[r] = append([]int(nil), sends[r]...)
		} else {
			out[r] = recvd[r].ints
		}
	}
	return out, nil
}

// AlltoallFloats delivers sends[r] to rank r.
func (l *Local) AlltoallFloats(sends [][]float64) ([][]float64, error) {
	if err := checkSends(len(sends), l.group.size); err != nil {
		return nil, err
	}
	recvd, err := l.exchange(opAlltoallFloats, func(r int) message {
		return message{kind: opAlltoallFloats, floats: append([]float64(nil), sends[r]...)}
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float64, l.group.size)
	for r := range out {
		if r == l.rank {
			out[r] = append([]float64(nil), sends[r]...)
		} else {
			out[r] = recvd[r].floats
		}
	}
	return out, nil
}

// AllreduceSum returns the sum of x over all ranks.
func (l *Local) AllreduceSum(x float64) (float64, error) {
	recvd, err := l.exchange(opAllreduce, func(int) message {
		return message{kind: opAllreduce, floats: []float64{x}}
	})
	if err != nil {
		return 0, err
	}

	total := x
	for r, m := range recvd {
		if r == l.rank {
			continue
		}
		total += m.floats[0]
	}
	return total, nil
}
