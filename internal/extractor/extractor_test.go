package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"qtrex/internal/rcctree"
)

func putU32(buf []byte, off int, v uint32) { binary.BigEndian.PutUint32(buf[off:], v) }
func putU16(buf []byte, off int, v uint16) { binary.BigEndian.PutUint16(buf[off:], v) }

func writeDirEntry(buf []byte, off int, nameOff uint32, childCount, firstChild uint32) {
	putU32(buf, off, nameOff)
	putU16(buf, off+4, 0x2)
	putU32(buf, off+6, childCount)
	putU32(buf, off+10, firstChild)
}

func writeFileEntryTest(buf []byte, off int, nameOff uint32, compressed bool, dataOff uint32) {
	putU32(buf, off, nameOff)
	flags := uint16(0)
	if compressed {
		flags = 0x1
	}
	putU16(buf, off+4, flags)
	putU32(buf, off+10, dataOff)
}

// writePlainBlob appends a length-prefixed, uncompressed payload.
func writePlainBlob(buf []byte, payload []byte) []byte {
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(payload)))
	buf = append(buf, size...)
	buf = append(buf, payload...)
	return buf
}

// writeCompressedBlob appends a length-prefixed zlib-compressed payload:
// outer u32 = payload length (the 4-byte inner prefix plus the zlib
// stream), inner u32 (first 4 bytes of the payload) = uncompressed length.
func writeCompressedBlob(t *testing.T, buf []byte, payload []byte) []byte {
	t.Helper()
	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	inner := make([]byte, 4+zbuf.Len())
	binary.BigEndian.PutUint32(inner, uint32(len(payload)))
	copy(inner[4:], zbuf.Bytes())

	return writePlainBlob(buf, inner)
}

func TestExtractSimpleTree(t *testing.T) {
	names := map[int]string{0: "root", 8: "hello.txt", 20: "world.txt"}

	tree := make([]byte, 3*rcctree.EntrySize)
	writeDirEntry(tree, 0, 0, 2, 1)
	writeFileEntryTest(tree, rcctree.EntrySize, 8, false, 0)
	writeFileEntryTest(tree, 2*rcctree.EntrySize, 20, true, 100)

	var blob []byte
	blob = writePlainBlob(blob, []byte("hello world"))
	for len(blob) < 100 {
		blob = append(blob, 0)
	}
	blob = writeCompressedBlob(t, blob, []byte("compressed payload"))

	buf := make([]byte, len(tree)+len(blob))
	copy(buf, tree)
	copy(buf[len(tree):], blob)
	blobBase := len(tree)

	outDir := t.TempDir()
	res, err := Extract(buf, 0, 0, 1, names, blobBase, outDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.FilesWritten != 2 || res.DirsCreated != 0 {
		t.Fatalf("Result = %+v, want 2 files, 0 dirs", res)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "hello.txt"))
	if err != nil || string(got) != "hello world" {
		t.Fatalf("hello.txt = %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(outDir, "world.txt"))
	if err != nil || string(got) != "compressed payload" {
		t.Fatalf("world.txt = %q, %v", got, err)
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	names := map[int]string{0: "../../etc/passwd"}
	tree := make([]byte, rcctree.EntrySize)
	writeFileEntryTest(tree, 0, 0, false, 0)

	var blob []byte
	blob = writePlainBlob(blob, []byte("x"))

	buf := make([]byte, len(tree)+len(blob))
	copy(buf, tree)
	copy(buf[len(tree):], blob)

	_, err := Extract(buf, 0, 0, 1, names, len(tree), t.TempDir())
	if err == nil {
		t.Fatalf("expected an error for a path-traversal name")
	}
}
