// Package blobloc locates the Qt resource blob region: the payload area
// referenced by every file entry's data_off. With two or more distinct
// data_off values, the region's absolute base B is recoverable purely from
// the deltas between consecutive offsets, with no call-site scanning
// required. Grounded on original_source/src/tree.rs's find_blob_offsets,
// adjusted to compute B directly (the prototype's loop variable "start"
// records the first blob header's absolute position, B+offsets[0], not B
// itself; rather than carry that off-by-offsets[0] bookkeeping through,
// this computes B straight from the relation the prototype only checks
// implicitly).
package blobloc

import (
	"sort"

	"qtrex/internal/callscan"
	"qtrex/internal/qtspan"
	"qtrex/internal/reader"
)

// Candidate is one validated blob-region base.
type Candidate struct {
	Span     qtspan.Span
	Distance int
}

// FindMultiFile searches buf for every base B such that, for every
// consecutive pair in the sorted, deduplicated data offsets, reading a
// big-endian u32 at B+offsets[i] equals offsets[i+1]-offsets[i]-4 (the
// declared payload size of the file at offsets[i]). Requires at least two
// distinct offsets; with only one, deltas carry no information and the
// single-file call-site fallback (package callscan) is needed instead.
//
// anchor is the span (typically the name region) candidates are scored
// against via qtspan.Distance, ordering results best-first.
func FindMultiFile(buf []byte, offsets []int, anchor qtspan.Span) []Candidate {
	if len(offsets) < 2 {
		return nil
	}

	last := offsets[len(offsets)-1]
	var found []Candidate

	for B := 0; B+last+4 <= len(buf); B++ {
		ok := true
		for i := 0; i < len(offsets)-1; i++ {
			size, err := reader.U32(buf, B+offsets[i])
			if err != nil || int(size) != offsets[i+1]-offsets[i]-4 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		lastSize, err := reader.U32(buf, B+last)
		if err != nil {
			continue
		}

		span := qtspan.Span{Start: B, End: B + last + 4 + int(lastSize)}
		found = append(found, Candidate{
			Span:     span,
			Distance: qtspan.Distance(anchor, span),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].Span.Start < found[j].Span.Start
	})
	return found
}

// FindSingleFile is the fallback used when a discovered tree has only one
// file (no deltas to search with). Each call-site's resolved target is
// tried as a candidate blob base B: the candidate is accepted only if
// reading a big-endian u32 at B+dataOff yields a plausible payload size
// (nonzero, and the remaining buffer can hold it). Candidates are scored by proximity
// to anchor, same as FindMultiFile.
func FindSingleFile(buf []byte, dataOff int, sites []callscan.Site, anchor qtspan.Span) []Candidate {
	var found []Candidate
	seen := make(map[int]bool)

	for _, site := range sites {
		B := site.TargetOff
		if B < 0 || seen[B] {
			continue
		}
		seen[B] = true

		size, err := reader.U32(buf, B+dataOff)
		if err != nil || size == 0 {
			continue
		}
		end := B + dataOff + 4 + int(size)
		if end > len(buf) {
			continue
		}

		span := qtspan.Span{Start: B, End: end}
		found = append(found, Candidate{
			Span:     span,
			Distance: qtspan.Distance(anchor, span),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].Span.Start < found[j].Span.Start
	})
	return found
}
