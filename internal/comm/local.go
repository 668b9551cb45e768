package comm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// localGroup wires a fixed set of in-process members with one upstream and
// one downstream channel per rank. Channel FIFO order carries the two-phase
// size-then-payload exchanges without extra sequencing.
type localGroup struct {
	size int
	up   []chan []byte
	down []chan []byte
}

type localMember struct {
	rank int
	g    *localGroup
}

// NewLocalGroup creates a group of size in-process members. Each returned
// Communicator belongs to exactly one goroutine; the caller runs one member
// per goroutine and every member must invoke the same collectives in the
// same order.
func NewLocalGroup(size int) ([]Communicator, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	g := &localGroup{
		size: size,
		up:   make([]chan []byte, size),
		down: make([]chan []byte, size),
	}
	for i := 0; i < size; i++ {
		g.up[i] = make(chan []byte, 2)
		g.down[i] = make(chan []byte, 1)
	}
	members := make([]Communicator, size)
	for r := 0; r < size; r++ {
		members[r] = &localMember{rank: r, g: g}
	}
	return members, nil
}

func (m *localMember) Rank() int { return m.rank }
func (m *localMember) Size() int { return m.g.size }

func (m *localMember) GatherBytes(p []byte) ([]byte, []int, error) {
	g := m.g
	if m.rank != 0 {
		var lb [8]byte
		binary.BigEndian.PutUint64(lb[:], uint64(len(p)))
		g.up[m.rank] <- lb[:]
		g.up[m.rank] <- bytes.Clone(p)
		return nil, nil, nil
	}

	lens := make([]int, g.size)
	lens[0] = len(p)
	total := len(p)
	for r := 1; r < g.size; r++ {
		lens[r] = int(binary.BigEndian.Uint64(<-g.up[r]))
		total += lens[r]
	}

	flat := make([]byte, total)
	copy(flat, p)
	offset := lens[0]
	for r := 1; r < g.size; r++ {
		b := <-g.up[r]
		if len(b) != lens[r] {
			return nil, nil, fmt.Errorf("rank %d sent %d bytes after reporting %d", r, len(b), lens[r])
		}
		copy(flat[offset:], b)
		offset += lens[r]
	}
	return flat, lens, nil
}

func (m *localMember) BroadcastBytes(p []byte) ([]byte, error) {
	g := m.g
	if m.rank != 0 {
		return <-g.down[m.rank], nil
	}
	for r := 1; r < g.size; r++ {
		g.down[r] <- bytes.Clone(p)
	}
	return p, nil
}

func (m *localMember) Barrier() error {
	g := m.g
	if m.rank != 0 {
		g.up[m.rank] <- nil
		<-g.down[m.rank]
		return nil
	}
	for r := 1; r < g.size; r++ {
		<-g.up[r]
	}
	for r := 1; r < g.size; r++ {
		g.down[r] <- nil
	}
	return nil
}

func (m *localMember) GatherInt(v int) ([]int, error)       { return gatherInt(m, v) }
func (m *localMember) GatherInts(vs []int) ([][]int, error) { return gatherInts(m, vs) }
func (m *localMember) ReduceMax(v float64) (float64, error) { return reduceMax(m, v) }
