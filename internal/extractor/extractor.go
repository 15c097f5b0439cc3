// Package extractor walks a validated tree/name/blob triple and writes the
// embedded file hierarchy to disk. Grounded on
// _examples/a97077088-qtrcc/main.go's readEntry/GetResource (directory
// recursion, the 4-byte big-endian uncompressed-length prefix preceding a
// zlib stream for compressed payloads) and original_source/src/tree.rs's
// extract_tree (depth-first, directories before files, path sanitization).
package extractor

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"qtrex/internal/rcctree"
	"qtrex/internal/reader"
)

// Result summarizes one completed extraction.
type Result struct {
	FilesWritten int
	DirsCreated  int
	BytesWritten int64
}

// Extract writes the entries in [nodeID, nodeID+count) of treeBase
// directly beneath outDir, resolving names from names and payloads from
// blobBase. Per spec.md §4.7, entry 0 (the tree's root) is walked *as*
// the accumulating path rather than as a named path component: its own
// name contributes nothing, and its children land straight under outDir.
// Extract applies that rule uniformly to whatever entries it's handed, so
// the usual nodeID=0, count=1 call (the real root directory) writes its
// children directly into outDir instead of nesting them under a "root"
// (or whatever the root's name happens to be) subdirectory.
func Extract(buf []byte, treeBase, nodeID, count int, names map[int]string, blobBase int, outDir string) (Result, error) {
	var res Result
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("extractor: mkdir %s: %w", outDir, err)
	}
	for id := nodeID; id < nodeID+count; id++ {
		e, err := rcctree.ParseEntry(buf, treeBase, id)
		if err != nil {
			return res, fmt.Errorf("extractor: entry %d: %w", id, err)
		}
		if e.IsDir() {
			if err := walk(buf, treeBase, int(e.FirstChildID), int(e.ChildCount), names, blobBase, outDir, &res); err != nil {
				return res, err
			}
			continue
		}
		if err := writeFileEntry(buf, id, e, names, blobBase, outDir, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func walk(buf []byte, treeBase, nodeID, count int, names map[int]string, blobBase int, dir string, res *Result) error {
	for id := nodeID; id < nodeID+count; id++ {
		e, err := rcctree.ParseEntry(buf, treeBase, id)
		if err != nil {
			return fmt.Errorf("extractor: entry %d: %w", id, err)
		}

		if e.IsDir() {
			name, ok := names[int(e.NameOff)]
			if !ok {
				return fmt.Errorf("extractor: entry %d: unresolved name offset %d", id, e.NameOff)
			}
			cleanName, err := sanitizeName(name)
			if err != nil {
				return fmt.Errorf("extractor: entry %d: %w", id, err)
			}
			target := filepath.Join(dir, cleanName)

			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extractor: mkdir %s: %w", target, err)
			}
			res.DirsCreated++
			if err := walk(buf, treeBase, int(e.FirstChildID), int(e.ChildCount), names, blobBase, target, res); err != nil {
				return err
			}
			continue
		}

		if err := writeFileEntry(buf, id, e, names, blobBase, dir, res); err != nil {
			return err
		}
	}
	return nil
}

// writeFileEntry resolves e's name, reads and (if flagged) inflates its
// payload, and writes it under dir.
func writeFileEntry(buf []byte, id int, e rcctree.Entry, names map[int]string, blobBase int, dir string, res *Result) error {
	name, ok := names[int(e.NameOff)]
	if !ok {
		return fmt.Errorf("extractor: entry %d: unresolved name offset %d", id, e.NameOff)
	}
	cleanName, err := sanitizeName(name)
	if err != nil {
		return fmt.Errorf("extractor: entry %d: %w", id, err)
	}
	target := filepath.Join(dir, cleanName)

	data, err := readPayload(buf, blobBase+int(e.DataOff))
	if err != nil {
		return fmt.Errorf("extractor: entry %d (%s): %w", id, cleanName, err)
	}
	if e.Compressed() {
		data, err = inflate(data)
		if err != nil {
			return fmt.Errorf("extractor: entry %d (%s): %w", id, cleanName, err)
		}
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("extractor: write %s: %w", target, err)
	}
	res.FilesWritten++
	res.BytesWritten += int64(len(data))
	return nil
}

// readPayload reads the length-prefixed payload at off: a big-endian u32
// length followed by that many raw bytes.
func readPayload(buf []byte, off int) ([]byte, error) {
	size, err := reader.U32(buf, off)
	if err != nil {
		return nil, err
	}
	return reader.Bytes(buf, off+4, int(size))
}

// inflate decompresses a Qt-compressed payload: a big-endian u32
// uncompressed-length prefix followed by a raw zlib stream. The decoded
// length is checked against the declared length to catch truncated or
// corrupt streams early.
func inflate(payload []byte) ([]byte, error) {
	want, err := reader.U32(payload, 0)
	if err != nil {
		return nil, fmt.Errorf("compressed payload too short for length prefix: %w", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if uint32(out.Len()) != want {
		return nil, fmt.Errorf("decompressed length %d != declared %d", out.Len(), want)
	}
	return out.Bytes(), nil
}

// sanitizeName rejects a resource name that would let extraction escape
// outDir: embedded NULs, "." or ".." path segments, or an empty name.
// Segments are checked before any cleaning, since path.Clean would
// silently absorb a ".." that climbs above the root rather than reject it.
func sanitizeName(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("embedded NUL in name %q", name)
	}
	trimmed := strings.TrimPrefix(name, "/")
	if trimmed == "" {
		return "", fmt.Errorf("empty resource name")
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("unsafe resource name %q", name)
		}
	}
	return trimmed, nil
}

