package rccnames

import (
	"encoding/binary"
	"testing"

	"qtrex/internal/qthash"
)

// encodeName appends one big-endian name entry (size, hash, utf16be name)
// for s to buf.
func encodeName(buf []byte, s string) []byte {
	units := []uint16{}
	for _, r := range s {
		units = append(units, uint16(r))
	}
	size := make([]byte, 2)
	binary.BigEndian.PutUint16(size, uint16(len(units)))
	hash := make([]byte, 4)
	binary.BigEndian.PutUint32(hash, qthash.Hash(s))
	buf = append(buf, size...)
	buf = append(buf, hash...)
	for _, u := range units {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, u)
		buf = append(buf, b...)
	}
	return buf
}

func TestScanSingleName(t *testing.T) {
	var buf []byte
	buf = encodeName(buf, "hello")

	regions := Scan(buf)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	r := regions[0]
	if r.Start != 0 || r.End != len(buf) {
		t.Fatalf("region span = [%d,%d), want [0,%d)", r.Start, r.End, len(buf))
	}
	if r.Entries[0] != "hello" {
		t.Fatalf("Entries[0] = %q, want hello", r.Entries[0])
	}
}

func TestScanMultipleNamesOneRegion(t *testing.T) {
	var buf []byte
	buf = encodeName(buf, "")
	offHello := len(buf)
	buf = encodeName(buf, "hello")
	offWorld := len(buf)
	buf = encodeName(buf, "world")
	_ = offHello

	regions := Scan(buf)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1: %+v", len(regions), regions)
	}
	r := regions[0]
	// The leading zero-length name breaks decoding immediately, so the
	// accepted run should start at the "hello" entry, not offset 0.
	if r.Start != offHello {
		t.Fatalf("region start = %d, want %d", r.Start, offHello)
	}
	if r.Entries[0] != "hello" {
		t.Fatalf("Entries[0] = %q, want hello", r.Entries[0])
	}
	if r.Entries[offWorld-offHello] != "world" {
		t.Fatalf("Entries[%d] = %q, want world", offWorld-offHello, r.Entries[offWorld-offHello])
	}
}

func TestScanIgnoresGarbage(t *testing.T) {
	buf := []byte{0x00, 0x6f, 0x00, 0x6b, 0xff, 0xff, 0xff, 0xff}
	regions := Scan(buf)
	if len(regions) != 0 {
		t.Fatalf("got %d regions on garbage input, want 0", len(regions))
	}
}

func TestScanPadding(t *testing.T) {
	pad := make([]byte, 4)
	var buf []byte
	buf = append(buf, pad...)
	start := len(buf)
	buf = encodeName(buf, "icons")
	buf = append(buf, pad...)

	regions := Scan(buf)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].Start != start {
		t.Fatalf("region start = %d, want %d", regions[0].Start, start)
	}
}
