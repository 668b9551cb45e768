// Package comm provides the minimal set of collective operations the
// bag-of-words pipeline needs: gathers to rank 0 (fixed and variable
// length), a broadcast from rank 0, a barrier and a max-reduction. Every
// collective is a blocking rendezvous: all members of a group must invoke
// the same operation in the same order or the group deadlocks. There are no
// per-operation timeouts and no recovery from a failed member.
package comm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Communicator is one member's handle on its group. Variable-length
// collectives follow a two-phase contract: member payload sizes are
// exchanged through a fixed-size gather first, then the payloads land in a
// single flat buffer at offsets computed from the reported sizes.
type Communicator interface {
	Rank() int
	Size() int

	// GatherInt collects one integer per member at rank 0, indexed by
	// rank. Non-root members get nil.
	GatherInt(v int) ([]int, error)

	// GatherInts collects a variable-length integer slice per member at
	// rank 0, indexed by rank. Non-root members get nil.
	GatherInts(vs []int) ([][]int, error)

	// GatherBytes collects every member's payload into one flat buffer at
	// rank 0, ordered by rank, and returns the per-rank lengths alongside
	// it. Non-root members get nil buffers.
	GatherBytes(p []byte) ([]byte, []int, error)

	// BroadcastBytes distributes rank 0's payload; every member returns
	// identical bytes. The payload argument is ignored on non-root members.
	BroadcastBytes(p []byte) ([]byte, error)

	Barrier() error

	// ReduceMax returns the group maximum at rank 0 and zero elsewhere.
	ReduceMax(v float64) (float64, error)
}

func encodeInts(vs []int) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(b[i*8:], uint64(v))
	}
	return b
}

func decodeInts(b []byte) ([]int, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("integer payload has invalid length %d", len(b))
	}
	vs := make([]int, len(b)/8)
	for i := range vs {
		vs[i] = int(binary.BigEndian.Uint64(b[i*8:]))
	}
	return vs, nil
}

// gatherInt implements the fixed-size integer gather on top of the byte
// gather; every member contributes exactly eight bytes.
func gatherInt(c Communicator, v int) ([]int, error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	flat, lens, err := c.GatherBytes(b[:])
	if err != nil {
		return nil, err
	}
	if c.Rank() != 0 {
		return nil, nil
	}
	out := make([]int, len(lens))
	offset := 0
	for r, n := range lens {
		if n != 8 {
			return nil, fmt.Errorf("rank %d contributed %d bytes to a fixed-size gather", r, n)
		}
		out[r] = int(binary.BigEndian.Uint64(flat[offset:]))
		offset += n
	}
	return out, nil
}

func gatherInts(c Communicator, vs []int) ([][]int, error) {
	flat, lens, err := c.GatherBytes(encodeInts(vs))
	if err != nil {
		return nil, err
	}
	if c.Rank() != 0 {
		return nil, nil
	}
	out := make([][]int, len(lens))
	offset := 0
	for r, n := range lens {
		chunk, err := decodeInts(flat[offset : offset+n])
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", r, err)
		}
		out[r] = chunk
		offset += n
	}
	return out, nil
}

func reduceMax(c Communicator, v float64) (float64, error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	flat, lens, err := c.GatherBytes(b[:])
	if err != nil {
		return 0, err
	}
	if c.Rank() != 0 {
		return 0, nil
	}
	max := math.Inf(-1)
	offset := 0
	for r, n := range lens {
		if n != 8 {
			return 0, fmt.Errorf("rank %d contributed %d bytes to a reduction", r, n)
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(flat[offset:]))
		if f > max {
			max = f
		}
		offset += n
	}
	return max, nil
}
