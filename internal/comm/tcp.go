package comm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
)

// maxFrameSize bounds a single collective payload so a corrupt length
// prefix cannot trigger an absurd allocation.
const maxFrameSize = 1 << 30

type helloMessage struct {
	WorkerID string `json:"worker_id"`
}

type assignMessage struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

// TCPComm is a Communicator over a star of TCP connections: the coordinator
// (rank 0) holds one connection per worker, every worker holds one
// connection to the coordinator. Collectives move length-prefixed frames in
// protocol lockstep; per-connection FIFO ordering is the only sequencing.
type TCPComm struct {
	rank  int
	size  int
	conns []net.Conn // coordinator: indexed by worker rank, nil at 0
	conn  net.Conn   // worker: connection to the coordinator
}

// TCPGroup is the coordinator's listening side before the group is
// complete.
type TCPGroup struct {
	ln   net.Listener
	size int
}

// ListenGroup binds the coordinator's listener for a group of size members
// (the coordinator itself included). The returned group accepts workers in
// WaitForWorkers.
func ListenGroup(addr string, size int) (*TCPGroup, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start the group listener on %s: %w", addr, err)
	}
	return &TCPGroup{ln: ln, size: size}, nil
}

func (g *TCPGroup) Addr() string {
	return g.ln.Addr().String()
}

// WaitForWorkers blocks until size-1 workers have joined, assigning ranks
// in connection order, then closes the listener and returns the rank-0
// communicator.
func (g *TCPGroup) WaitForWorkers() (*TCPComm, error) {
	conns := make([]net.Conn, g.size)
	for rank := 1; rank < g.size; rank++ {
		conn, err := g.ln.Accept()
		if err != nil {
			closeAll(conns)
			return nil, fmt.Errorf("failed to accept a worker connection: %w", err)
		}

		payload, err := readFrame(conn)
		if err != nil {
			conn.Close()
			closeAll(conns)
			return nil, fmt.Errorf("failed to read the worker hello: %w", err)
		}
		var hello helloMessage
		if err := json.Unmarshal(payload, &hello); err != nil {
			conn.Close()
			closeAll(conns)
			return nil, fmt.Errorf("invalid worker hello: %w", err)
		}

		assign, err := json.Marshal(assignMessage{Rank: rank, Size: g.size})
		if err != nil {
			conn.Close()
			closeAll(conns)
			return nil, fmt.Errorf("failed to encode the rank assignment: %w", err)
		}
		if err := writeFrame(conn, assign); err != nil {
			conn.Close()
			closeAll(conns)
			return nil, fmt.Errorf("failed to send the rank assignment: %w", err)
		}

		conns[rank] = conn
		log.Printf("Worker %s joined as rank %d/%d", hello.WorkerID, rank, g.size)
	}
	g.ln.Close()
	return &TCPComm{rank: 0, size: g.size, conns: conns}, nil
}

// JoinGroup dials the coordinator and performs the handshake. Only the dial
// is bounded by the timeout; collectives afterwards block indefinitely, as
// the group contract requires.
func JoinGroup(coordAddr string, timeout time.Duration) (*TCPComm, error) {
	conn, err := net.DialTimeout("tcp", coordAddr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the coordinator at %s: %w", coordAddr, err)
	}

	hello, err := json.Marshal(helloMessage{WorkerID: uuid.New().String()})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to encode the hello message: %w", err)
	}
	if err := writeFrame(conn, hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send the hello message: %w", err)
	}

	payload, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read the rank assignment: %w", err)
	}
	var assign assignMessage
	if err := json.Unmarshal(payload, &assign); err != nil {
		conn.Close()
		return nil, fmt.Errorf("invalid rank assignment: %w", err)
	}
	if assign.Rank < 1 || assign.Size < 2 || assign.Rank >= assign.Size {
		conn.Close()
		return nil, fmt.Errorf("coordinator assigned an invalid rank %d of %d", assign.Rank, assign.Size)
	}
	return &TCPComm{rank: assign.Rank, size: assign.Size, conn: conn}, nil
}

func (c *TCPComm) Rank() int { return c.rank }
func (c *TCPComm) Size() int { return c.size }

func (c *TCPComm) Close() error {
	if c.rank != 0 {
		return c.conn.Close()
	}
	closeAll(c.conns)
	return nil
}

func (c *TCPComm) GatherBytes(p []byte) ([]byte, []int, error) {
	if c.rank != 0 {
		var lb [8]byte
		binary.BigEndian.PutUint64(lb[:], uint64(len(p)))
		if err := writeFrame(c.conn, lb[:]); err != nil {
			return nil, nil, fmt.Errorf("rank %d failed to report its payload size: %w", c.rank, err)
		}
		if err := writeFrame(c.conn, p); err != nil {
			return nil, nil, fmt.Errorf("rank %d failed to send its payload: %w", c.rank, err)
		}
		return nil, nil, nil
	}

	lens := make([]int, c.size)
	lens[0] = len(p)
	total := len(p)
	for r := 1; r < c.size; r++ {
		b, err := readFrame(c.conns[r])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read the payload size of rank %d: %w", r, err)
		}
		if len(b) != 8 {
			return nil, nil, fmt.Errorf("rank %d sent a malformed size frame of %d bytes", r, len(b))
		}
		lens[r] = int(binary.BigEndian.Uint64(b))
		total += lens[r]
	}

	flat := make([]byte, total)
	copy(flat, p)
	offset := lens[0]
	for r := 1; r < c.size; r++ {
		b, err := readFrame(c.conns[r])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read the payload of rank %d: %w", r, err)
		}
		if len(b) != lens[r] {
			return nil, nil, fmt.Errorf("rank %d sent %d bytes after reporting %d", r, len(b), lens[r])
		}
		copy(flat[offset:], b)
		offset += lens[r]
	}
	return flat, lens, nil
}

func (c *TCPComm) BroadcastBytes(p []byte) ([]byte, error) {
	if c.rank != 0 {
		b, err := readFrame(c.conn)
		if err != nil {
			return nil, fmt.Errorf("rank %d failed to receive the broadcast: %w", c.rank, err)
		}
		return b, nil
	}
	for r := 1; r < c.size; r++ {
		if err := writeFrame(c.conns[r], p); err != nil {
			return nil, fmt.Errorf("failed to broadcast to rank %d: %w", r, err)
		}
	}
	return p, nil
}

func (c *TCPComm) Barrier() error {
	if c.rank != 0 {
		if err := writeFrame(c.conn, nil); err != nil {
			return fmt.Errorf("rank %d failed to enter the barrier: %w", c.rank, err)
		}
		if _, err := readFrame(c.conn); err != nil {
			return fmt.Errorf("rank %d failed to leave the barrier: %w", c.rank, err)
		}
		return nil
	}
	for r := 1; r < c.size; r++ {
		if _, err := readFrame(c.conns[r]); err != nil {
			return fmt.Errorf("rank %d never entered the barrier: %w", r, err)
		}
	}
	for r := 1; r < c.size; r++ {
		if err := writeFrame(c.conns[r], nil); err != nil {
			return fmt.Errorf("failed to release rank %d from the barrier: %w", r, err)
		}
	}
	return nil
}

func (c *TCPComm) GatherInt(v int) ([]int, error)       { return gatherInt(c, v) }
func (c *TCPComm) GatherInts(vs []int) ([][]int, error) { return gatherInts(c, vs) }
func (c *TCPComm) ReduceMax(v float64) (float64, error) { return reduceMax(c, v) }

// writeFrame sends a 4-byte big-endian length prefix followed by the
// payload.
func writeFrame(conn net.Conn, payload []byte) error {
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := conn.Write(lengthBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := conn.Write(payload)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(conn, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds the %d byte limit", length, maxFrameSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func closeAll(conns []net.Conn) {
	for _, conn := range conns {
		if conn != nil {
			conn.Close()
		}
	}
}
