package zen

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Frame layout constants.
//
// Every command frame starts with a 2-byte big-endian sequence number
// followed by a JSON payload. Responses echo the request's sequence so
// the client can correlate them.
const (
	// seqSize is the size of the sequence number prefix.
	seqSize = 2

	// seqModulo wraps the sequence counter.
	seqModulo = 65536
)

// EncodeFrame prefixes a payload with its big-endian sequence number.
func EncodeFrame(seq uint16, payload []byte) []byte {
	frame := make([]byte, seqSize+len(payload))
	binary.BigEndian.PutUint16(frame[:seqSize], seq)
	copy(frame[seqSize:], payload)
	return frame
}

// DecodeFrame splits a datagram into sequence number and payload.
// Returns ErrInvalidFrame for datagrams shorter than the sequence prefix.
// The returned payload aliases the input slice.
func DecodeFrame(data []byte) (uint16, []byte, error) {
	if len(data) < seqSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(data))
	}
	return binary.BigEndian.Uint16(data[:seqSize]), data[seqSize:], nil
}

// sequenceCounter issues wrapping sequence numbers.
// Safe for concurrent use.
type sequenceCounter struct {
	mu  sync.Mutex
	seq uint32
}

// Next returns the next sequence number, wrapping modulo 65536.
func (c *sequenceCounter) Next() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = (c.seq + 1) % seqModulo
	return uint16(c.seq)
}
