// Package reader provides bounds-checked, big-endian fixed-width reads
// against a byte slice at an absolute offset.
package reader

import (
	"encoding/binary"
	"fmt"
)

// ErrBounds is returned when a read would run past the end of the buffer.
var ErrBounds = fmt.Errorf("reader: offset out of bounds")

// U16 reads a big-endian uint16 at off.
func U16(buf []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, ErrBounds
	}
	return binary.BigEndian.Uint16(buf[off:]), nil
}

// U32 reads a big-endian uint32 at off.
func U32(buf []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, ErrBounds
	}
	return binary.BigEndian.Uint32(buf[off:]), nil
}

// U64 reads a big-endian uint64 at off.
func U64(buf []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(buf) {
		return 0, ErrBounds
	}
	return binary.BigEndian.Uint64(buf[off:]), nil
}

// Bytes returns a sub-slice of length n at off, bounds-checked.
func Bytes(buf []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(buf) {
		return nil, ErrBounds
	}
	return buf[off : off+n], nil
}
