package engine

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"qtrex/internal/qthash"
)

func putU16(buf []byte, off int, v uint16) { binary.BigEndian.PutUint16(buf[off:], v) }
func putU32(buf []byte, off int, v uint32) { binary.BigEndian.PutUint32(buf[off:], v) }
func putU64(buf []byte, off int, v uint64) { binary.BigEndian.PutUint64(buf[off:], v) }

// appendName appends one big-endian name entry (size, hash, utf16be name)
// for s to buf, mirroring internal/rccnames_test's encodeName.
func appendName(buf []byte, s string) []byte {
	var units []uint16
	for _, r := range s {
		units = append(units, uint16(r))
	}
	head := make([]byte, 6)
	binary.BigEndian.PutUint16(head, uint16(len(units)))
	binary.BigEndian.PutUint32(head[2:], qthash.Hash(s))
	buf = append(buf, head...)
	for _, u := range units {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, u)
		buf = append(buf, b...)
	}
	return buf
}

const entrySize = 22

func writeDirEntry(buf []byte, off int, nameOff uint32, childCount, firstChild uint32) {
	putU32(buf, off, nameOff)
	putU16(buf, off+4, 0x2)
	putU32(buf, off+6, childCount)
	putU32(buf, off+10, firstChild)
	putU64(buf, off+14, 0)
}

func writeFileEntry(buf []byte, off int, nameOff uint32, dataOff uint32) {
	putU32(buf, off, nameOff)
	putU16(buf, off+4, 0)
	putU16(buf, off+6, 0)
	putU16(buf, off+8, 0)
	putU32(buf, off+10, dataOff)
	putU64(buf, off+14, 0)
}

// buildMappedELF64 builds a minimal ELF64 x86-64 executable with one
// PT_LOAD segment mapping the entire file 1:1 at virtual address 0x400000 —
// execmap.Parse only needs a recognizable container, not real code.
func buildMappedELF64(size int) []byte {
	const ehsize = 64
	const phsize = 56

	buf := make([]byte, size)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4], buf[5], buf[6] = 2, 1, 1

	le16 := func(off int, v uint16) { buf[off], buf[off+1] = byte(v), byte(v>>8) }
	le32 := func(off int, v uint32) {
		for i := 0; i < 4; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	le64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}

	le16(16, 2)
	le16(18, 0x3e)
	le32(20, 1)
	le64(24, 0x400078)
	le64(32, ehsize)
	le64(40, 0)
	le32(48, 0)
	le16(52, ehsize)
	le16(54, phsize)
	le16(56, 1)
	le16(58, 0)
	le16(60, 0)
	le16(62, 0)

	ph := ehsize
	le32(ph+0, 1)
	le32(ph+4, 5)
	le64(ph+8, 0)
	le64(ph+16, 0x400000)
	le64(ph+24, 0x400000)
	le64(ph+32, uint64(size))
	le64(ph+40, uint64(size))
	le64(ph+48, 0x1000)

	return buf
}

// writeBlob appends a length-prefixed payload to buf.
func writeBlob(buf []byte, payload []byte) []byte {
	head := make([]byte, 4)
	binary.BigEndian.PutUint32(head, uint32(len(payload)))
	buf = append(buf, head...)
	return append(buf, payload...)
}

func TestExtractRoundTrip(t *testing.T) {
	const (
		namesStart = 0x200
		treeBase   = 0x300
		blobBase   = 0x400
	)

	raw := buildMappedELF64(0x600)

	var names []byte
	names = appendName(names, "root")         // relative offset 0
	helloOff := len(names)
	names = appendName(names, "hello.txt")    // relative offset 14
	worldOff := len(names)
	names = appendName(names, "world.txt")    // relative offset 38
	copy(raw[namesStart:], names)

	writeDirEntry(raw, treeBase, 0, 2, 1)
	writeFileEntry(raw, treeBase+entrySize, uint32(helloOff), 0)

	payload1 := []byte("hello world")
	var blob []byte
	blob = writeBlob(blob, payload1)
	dataOff2 := uint32(len(blob))
	payload2 := []byte("goodbye world!")
	blob = writeBlob(blob, payload2)
	copy(raw[blobBase:], blob)

	writeFileEntry(raw, treeBase+2*entrySize, uint32(worldOff), dataOff2)

	outDir := filepath.Join(t.TempDir(), "out")
	results, err := Extract(raw, outDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(results.Trees) != 1 {
		t.Fatalf("len(Trees) = %d, want 1", len(results.Trees))
	}
	if results.FilesWritten != 2 {
		t.Fatalf("FilesWritten = %d, want 2", results.FilesWritten)
	}
	if results.DirsCreated != 0 {
		t.Fatalf("DirsCreated = %d, want 0", results.DirsCreated)
	}

	treeDir := results.Trees[0].OutDir
	if treeDir != filepath.Join(outDir, "00") {
		t.Fatalf("Trees[0].OutDir = %q, want %q", treeDir, filepath.Join(outDir, "00"))
	}

	got, err := os.ReadFile(filepath.Join(treeDir, "hello.txt"))
	if err != nil {
		t.Fatalf("reading hello.txt: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("hello.txt content = %q, want %q", got, "hello world")
	}

	got, err = os.ReadFile(filepath.Join(treeDir, "world.txt"))
	if err != nil {
		t.Fatalf("reading world.txt: %v", err)
	}
	if string(got) != "goodbye world!" {
		t.Fatalf("world.txt content = %q, want %q", got, "goodbye world!")
	}
}

func TestExtractNotFoundOnGarbage(t *testing.T) {
	// 0xFF everywhere guarantees no "00 XX" pair, so rccnames.Scan can't
	// even produce a name-region candidate for Extract to chase.
	raw := make([]byte, 512)
	for i := range raw {
		raw[i] = 0xFF
	}
	outDir := t.TempDir()

	_, err := Extract(raw, outDir)
	if err != ErrNotFound {
		t.Fatalf("Extract on garbage input: got err=%v, want ErrNotFound", err)
	}
}
