package execmap

import "bytes"

// newReaderAt adapts an in-memory byte slice to the io.ReaderAt the
// debug/elf and debug/pe parsers require, avoiding a second file open —
// the engine already holds the whole executable in memory per spec.md §5.
func newReaderAt(raw []byte) *bytes.Reader {
	return bytes.NewReader(raw)
}
