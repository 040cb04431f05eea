// Package dissect implements the Dissector Registry (component B):
// pure, bounds-checked, re-entrant functions — one per protocol — each
// turning a byte slice into a model.LayerRecord or a typed parse error.
// Grounded on spec.md §4.2 and, for decode style, on the teacher's
// pkg/linux/tcpinfo.go explicit byte-offset struct decoding.
package dissect

import (
	"encoding/binary"
	"errors"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

// errTruncated is returned internally by cursor reads that run past the
// end of the input; dissectors translate it into a Truncated LayerRecord
// via truncate, never letting it escape as a panic. This is the
// "replacement MUST express every read as a bounds-checked slice
// operation" requirement from spec.md §9.
var errTruncated = errors.New("truncated")

// cursor is a forward-only, bounds-checked reader over a single layer's
// input slice. Every method returns errTruncated instead of panicking
// when asked to read past the end.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.buf)
}

// take returns the next n bytes and advances, or errTruncated if fewer
// than n bytes remain.
func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, errTruncated
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// peek returns the next n bytes without advancing.
func (c *cursor) peek(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, errTruncated
	}
	return c.buf[c.pos : c.pos+n], nil
}

func (c *cursor) skip(n int) error {
	if n < 0 || c.remaining() < n {
		return errTruncated
	}
	c.pos += n
	return nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// u24 reads a 3-byte big-endian unsigned integer, the length encoding
// used by TLS handshake messages.
func (c *cursor) u24() (uint32, error) {
	b, err := c.take(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// offset returns the cursor's current position, used to compute a
// LayerRecord's ByteSpan length relative to the layer's start.
func (c *cursor) offset() int {
	return c.pos
}

// truncate marks layer as Truncated in place. Dissectors call it inline,
// right before returning, when a cursor read fails.
func truncate(layer *model.LayerRecord, reason string) {
	layer.State = model.LayerTruncated
	layer.AddWarning("truncated: " + reason)
}
