// Package rcctree locates and validates the Qt resource tree region: the
// fixed 22-byte-entry array describing the directory hierarchy, rooted at
// entry 0. Grounded on original_source/src/tree.rs's parse_tree /
// find_tree_offsets (reverse 8-byte-aligned sweep, visited-ID tracking to
// reject cycles/overlaps, and using "every referenced name_off resolves,
// node count at least covers every discovered name" as the acceptance
// test for a candidate tree base).
package rcctree

import (
	"sort"

	"qtrex/internal/qtspan"
	"qtrex/internal/reader"
	"qtrex/internal/rccnames"
)

// EntrySize is the fixed size, in bytes, of a version-2 tree entry.
// Version 1 (no last-modified field, 14 bytes) is out of scope per
// spec.md's Non-goals; see DESIGN.md's Open Questions.
const EntrySize = 22

// directory flag bit; file entries never set it. Compression is bit 0 and
// only meaningful on file entries.
const flagDirectory = 0x2
const flagCompressed = 0x1

// maxDepth bounds recursive tree-walk depth (spec.md §4.5 condition 4).
const maxDepth = 64

// maxWalkEntries caps the total number of entries visited across a single
// candidate's walk (spec.md §5's per-candidate work cap).
const maxWalkEntries = 1 << 20

// searchPad extends the tree-base search window this many bytes to either
// side of the name region before falling back to a full-buffer scan.
const searchPad = 1 << 16

// Entry is one decoded tree entry; directory and file fields are both
// present but only the relevant half is populated, selected by Flags.
type Entry struct {
	NameOff      uint32
	Flags        uint16
	ChildCount   uint32
	FirstChildID uint32
	LocaleCountry uint16
	LocaleLang   uint16
	DataOff      uint32
	LastMod      uint64
}

// IsDir reports whether the entry is a directory node.
func (e Entry) IsDir() bool { return e.Flags&flagDirectory != 0 }

// Compressed reports whether a file entry's payload is zlib-compressed.
func (e Entry) Compressed() bool { return e.Flags&flagCompressed != 0 }

// ParseEntry decodes the tree entry at byte offset treeBase+id*EntrySize.
func ParseEntry(buf []byte, treeBase, id int) (Entry, error) {
	off := treeBase + id*EntrySize
	nameOff, err := reader.U32(buf, off)
	if err != nil {
		return Entry{}, err
	}
	flags, err := reader.U16(buf, off+4)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{NameOff: nameOff, Flags: flags}
	if flags&flagDirectory != 0 {
		childCount, err := reader.U32(buf, off+6)
		if err != nil {
			return Entry{}, err
		}
		firstChild, err := reader.U32(buf, off+10)
		if err != nil {
			return Entry{}, err
		}
		lastMod, err := reader.U64(buf, off+14)
		if err != nil {
			return Entry{}, err
		}
		e.ChildCount, e.FirstChildID, e.LastMod = childCount, firstChild, lastMod
		return e, nil
	}

	country, err := reader.U16(buf, off+6)
	if err != nil {
		return Entry{}, err
	}
	lang, err := reader.U16(buf, off+8)
	if err != nil {
		return Entry{}, err
	}
	dataOff, err := reader.U32(buf, off+10)
	if err != nil {
		return Entry{}, err
	}
	lastMod, err := reader.U64(buf, off+14)
	if err != nil {
		return Entry{}, err
	}
	e.LocaleCountry, e.LocaleLang, e.DataOff, e.LastMod = country, lang, dataOff, lastMod
	return e, nil
}

// Tree is an accepted (validated) tree candidate.
type Tree struct {
	Base     int
	Count    int
	Density  int // max visited ID - min visited ID; smaller is a tighter packing
	Distance int // proximity score to the name region that anchored the search
}

func (t Tree) Span() qtspan.Span { return qtspan.Span{Start: t.Base, End: t.Base + t.Count*EntrySize} }

// FindTrees searches buf for every tree whose recursive walk from entry 0
// references only names.Entries and whose total visited node count covers
// every discovered name. Results are ordered best-first: nearest the name
// region, then tightest-packed, then lowest base offset (spec.md §4.5's
// tie-break, refined per SPEC_FULL.md's proximity scoring).
func FindTrees(buf []byte, names rccnames.Region) []Tree {
	nameOffsets := make(map[int]bool, len(names.Entries))
	for off := range names.Entries {
		nameOffsets[off] = true
	}
	minNames := len(names.Entries)
	if minNames == 0 {
		return nil
	}

	nameSpan := qtspan.Span{Start: names.Start, End: names.End}

	var found []Tree
	seen := make(map[int]bool)

	tryAndCollect := func(T int) {
		if T < 0 || seen[T] {
			return
		}
		seen[T] = true
		n, density, ok := tryTree(buf, T, nameOffsets, minNames)
		if !ok {
			return
		}
		found = append(found, Tree{
			Base:     T,
			Count:    n,
			Density:  density,
			Distance: qtspan.Distance(nameSpan, qtspan.Span{Start: T, End: T + n*EntrySize}),
		})
	}

	windowStart := alignDown(names.Start-searchPad, 8)
	windowEnd := alignUp(names.End+searchPad, 8)
	if windowStart < 0 {
		windowStart = 0
	}
	if windowEnd > len(buf) {
		windowEnd = len(buf)
	}
	for T := alignDown(windowEnd, 8); T >= windowStart; T -= 8 {
		tryAndCollect(T)
	}

	if len(found) == 0 {
		for T := alignDown(len(buf), 8); T >= 0; T -= 8 {
			tryAndCollect(T)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		if found[i].Density != found[j].Density {
			return found[i].Density < found[j].Density
		}
		return found[i].Base < found[j].Base
	})
	return found
}

func tryTree(buf []byte, T int, nameOffsets map[int]bool, minNames int) (count, density int, ok bool) {
	if T+EntrySize > len(buf) {
		return 0, 0, false
	}
	visited := make(map[int]bool)
	budget := maxWalkEntries
	minID, maxID := -1, -1

	n, ok := walk(buf, T, 0, 1, nameOffsets, visited, 0, &budget, &minID, &maxID)
	if !ok || n < minNames {
		return 0, 0, false
	}
	return n, maxID - minID, true
}

// walk validates and counts the subtree rooted at entries
// [nodeID, nodeID+count), recursing into directory children. It returns
// (0, false) on any structural violation, matching original_source's
// parse_tree "yields 0 on failure" convention.
func walk(
	buf []byte, treeBase, nodeID, count int,
	nameOffsets map[int]bool, visited map[int]bool,
	depth int, budget, minID, maxID *int,
) (int, bool) {
	if depth > maxDepth || nodeID < 0 || count < 0 {
		return 0, false
	}
	if treeBase+(nodeID+count)*EntrySize > len(buf) {
		return 0, false
	}
	for id := nodeID; id < nodeID+count; id++ {
		if visited[id] {
			return 0, false
		}
	}
	for id := nodeID; id < nodeID+count; id++ {
		visited[id] = true
	}

	total := 0
	for id := nodeID; id < nodeID+count; id++ {
		*budget--
		if *budget <= 0 {
			return 0, false
		}

		e, err := ParseEntry(buf, treeBase, id)
		if err != nil || e.Flags > 2 {
			return 0, false
		}
		if !nameOffsets[int(e.NameOff)] {
			return 0, false
		}

		if *minID < 0 || id < *minID {
			*minID = id
		}
		if id > *maxID {
			*maxID = id
		}

		if e.IsDir() {
			sub, ok := walk(buf, treeBase, int(e.FirstChildID), int(e.ChildCount), nameOffsets, visited, depth+1, budget, minID, maxID)
			if !ok {
				return 0, false
			}
			total += sub
		}
		total++
	}
	return total, true
}

// CollectDataOffsets walks the subtree rooted at [nodeID, nodeID+count)
// and returns every file entry's data_off, sorted and deduplicated.
// Grounded on original_source/src/tree.rs's collect_data_offsets.
func CollectDataOffsets(buf []byte, treeBase, nodeID, count int) []int {
	seen := make(map[int]bool)
	collectDataOffsets(buf, treeBase, nodeID, count, seen)

	out := make([]int, 0, len(seen))
	for off := range seen {
		out = append(out, off)
	}
	sort.Ints(out)
	return out
}

func collectDataOffsets(buf []byte, treeBase, nodeID, count int, seen map[int]bool) {
	if nodeID < 0 || count < 0 || treeBase+(nodeID+count)*EntrySize > len(buf) {
		return
	}
	for id := nodeID; id < nodeID+count; id++ {
		e, err := ParseEntry(buf, treeBase, id)
		if err != nil {
			continue
		}
		if e.IsDir() {
			collectDataOffsets(buf, treeBase, int(e.FirstChildID), int(e.ChildCount), seen)
			continue
		}
		seen[int(e.DataOff)] = true
	}
}

func alignDown(v, n int) int {
	if v < 0 {
		return 0
	}
	return (v / n) * n
}

func alignUp(v, n int) int {
	if v%n == 0 {
		return v
	}
	return (v/n + 1) * n
}
