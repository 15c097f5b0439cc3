// Package rccnames discovers Qt resource name regions inside raw
// executable bytes using an ASCII/UTF-16 heuristic, with no magic number
// or symbol to anchor on.
//
// The approach (grounded on original_source/src/name.rs's scan_ascii_names
// / parse_names): a name entry is `size: u16, hash: u32, name: [u16; size]`
// stored big-endian, and Qt resource names are effectively always ASCII or
// Latin-1 text, so every code unit of the name looks like the byte pair
// `00 XX` with XX printable. Scanning for that pair at both byte parities
// yields candidate "this looks like the start of a name's payload" offsets;
// walking each candidate's presumed header (`size`, `hash`) backward and
// validating it with qthash then extends forward to a maximal run of valid
// entries, which is accepted as one name region.
package rccnames

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"qtrex/internal/qthash"
	"qtrex/internal/reader"
)

// MaxNameLen is the soft upper bound spec.md §4.4 places on a name's code
// unit count, to reject candidates whose "size" field is garbage.
const MaxNameLen = 256

// Region is one maximal, validated name region: a byte span plus every
// name entry found within it, keyed by its offset relative to Span.Start.
type Region struct {
	Start, End int
	Entries    map[int]string
}

// Len reports the region's byte length.
func (r Region) Len() int { return r.End - r.Start }

// Scan finds every non-overlapping name region in buf.
func Scan(buf []byte) []Region {
	offsets := make(map[int]struct{})
	collectCandidates(buf, 0, offsets)
	collectCandidates(buf, 1, offsets)

	sorted := make([]int, 0, len(offsets))
	for off := range offsets {
		sorted = append(sorted, off)
	}
	sort.Ints(sorted)

	var regions []Region
	consumedUpTo := -1
	for _, off := range sorted {
		if off < consumedUpTo {
			continue
		}
		start, end, entries := parseRun(buf, off)
		if end <= start {
			continue
		}
		regions = append(regions, Region{Start: start, End: end, Entries: entries})
		consumedUpTo = end
	}
	return regions
}

// collectCandidates scans buf for `00 XX` pairs (XX printable ASCII) at the
// given byte parity (0 or 1), and for every maximal run of such pairs
// checks, via tryValidateRun, whether the six bytes preceding any code unit
// of the run decode to a valid (size, hash) header matching the run from
// that code unit on. Matching offsets (the header starts) are added to
// offsets.
func collectCandidates(buf []byte, parity int, offsets map[int]struct{}) {
	if len(buf) < 6 {
		return
	}

	var run []uint16
	runStart := -1

	flush := func(end int) {
		if runStart < 0 || len(run) == 0 {
			run = run[:0]
			runStart = -1
			return
		}
		tryValidateRun(buf, runStart, run, offsets)
		run = run[:0]
		runStart = -1
	}

	for off := parity; off+1 < len(buf); off += 2 {
		hi, lo := buf[off], buf[off+1]
		if hi == 0 && lo >= 0x21 && lo <= 0x7E {
			if runStart < 0 {
				runStart = off
			}
			run = append(run, uint16(lo))
			continue
		}
		flush(off)
	}
	flush(len(buf))
}

// tryValidateRun treats every code unit of the run as a possible first
// code unit of a name's payload and checks the header six bytes before it:
// its declared size, once truncated to the rest of the run, must hash
// correctly, following the original's truncate-then-hash approach (a run
// can contain more code units than the name actually declares; only the
// prefix up to `size` is hashed). Every header start that validates is
// added to offsets.
func tryValidateRun(buf []byte, runStart int, run []uint16, offsets map[int]struct{}) {
	for i := range run {
		headerStart := runStart + 2*i - 6
		if headerStart < 0 {
			continue
		}
		size, err := reader.U16(buf, headerStart)
		if err != nil {
			continue
		}
		n := int(size)
		rest := run[i:]
		if n == 0 || n > len(rest) || n > MaxNameLen {
			continue
		}
		hash, err := reader.U32(buf, headerStart+2)
		if err != nil {
			continue
		}
		s, ok := decodeUTF16BE(rest[:n])
		if !ok {
			continue
		}
		if qthash.Hash(s) == hash {
			offsets[headerStart] = struct{}{}
		}
	}
}

// parseRun strictly decodes a maximal sequence of name entries starting at
// off, stopping at the first entry that fails to decode or whose hash
// doesn't match (or whose size is zero). Mirrors original_source's
// parse_names exactly, including the relative-offset bookkeeping.
func parseRun(buf []byte, off int) (start, end int, entries map[int]string) {
	start = off
	end = off
	entries = make(map[int]string)

	for off < len(buf) {
		size, err := reader.U16(buf, off)
		if err != nil || size == 0 {
			break
		}
		hash, err := reader.U32(buf, off+2)
		if err != nil {
			break
		}
		codeUnits, err := bytesToU16BE(buf, off+6, int(size))
		if err != nil {
			break
		}
		s, ok := decodeUTF16BE(codeUnits)
		if !ok {
			break
		}
		if qthash.Hash(s) != hash {
			break
		}

		entries[end-start] = s
		off += 6 + 2*int(size)
		end = off
	}

	return start, end, entries
}

func bytesToU16BE(buf []byte, off, count int) ([]uint16, error) {
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		v, err := reader.U16(buf, off+2*i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// decodeUTF16BE decodes code units to a string, rejecting unpaired
// surrogates (utf16.Decode silently substitutes RuneError for those, which
// we treat as an invalid name rather than accept a replacement character).
func decodeUTF16BE(units []uint16) (string, bool) {
	runes := utf16.Decode(units)
	for _, r := range runes {
		if r == utf8.RuneError {
			return "", false
		}
	}
	return string(runes), true
}
