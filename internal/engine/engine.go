// Package engine wires the discovery primitives (execmap, rccnames,
// rcctree, blobloc, callscan, extractor) into the single end-to-end
// recovery pipeline internal/cli's commands drive: find every name
// region, find every tree candidate each one anchors, find that tree's
// blob region (by delta search or, for single-file trees, call-site
// scanning), and extract each distinct tree it can recover into its own
// zero-padded numbered subdirectory under the output root — cascading to
// the next candidate pair whenever a candidate fails rather than
// committing to the first match, and isolating a failed tree from the
// rest of the run (spec.md §7 propagation policy). Grounded on
// original_source/src/main.rs's top-level driver.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"qtrex/internal/blobloc"
	"qtrex/internal/callscan"
	"qtrex/internal/execmap"
	"qtrex/internal/extractor"
	"qtrex/internal/qtspan"
	"qtrex/internal/rccnames"
	"qtrex/internal/rcctree"
)

// Report summarizes one successfully recovered and extracted tree.
type Report struct {
	Index        int
	OutDir       string
	Container    execmap.Kind
	Arch         execmap.Arch
	NameRegion   rccnames.Region
	Tree         rcctree.Tree
	Blob         qtspan.Span
	FilesWritten int
	DirsCreated  int
	BytesWritten int64
}

// Results aggregates every tree recovered from one run.
type Results struct {
	Trees        []Report
	FilesWritten int
	DirsCreated  int
	BytesWritten int64
}

// ErrNotFound is returned when no name/tree/blob combination in the input
// survives both discovery and extraction.
var ErrNotFound = fmt.Errorf("engine: no Qt resource bundle found")

// Extract runs the full discovery-and-extraction pipeline against raw.
// Every distinct tree it can both validate and extract is written beneath
// its own zero-padded numeric subdirectory of outDir (spec.md §6); a
// failure recovering or extracting one tree does not prevent another tree
// in the same executable from being recovered. Extract returns
// ErrNotFound only if not a single tree was recovered.
func Extract(raw []byte, outDir string) (Results, error) {
	m, err := execmap.Parse(raw)
	if err != nil {
		return Results{}, fmt.Errorf("engine: %w", err)
	}

	regions := rccnames.Scan(raw)
	if len(regions) == 0 {
		return Results{}, ErrNotFound
	}

	// Try each name region largest-first: a larger region is more likely
	// to be the real resource name table rather than an incidental match
	// inside unrelated string data.
	sortRegionsByLen(regions)

	var results Results
	seenTrees := make(map[int]bool)

	for _, names := range regions {
		trees := rcctree.FindTrees(raw, names)
		for _, tree := range trees {
			if seenTrees[tree.Base] {
				continue
			}

			offsets := rcctree.CollectDataOffsets(raw, tree.Base, 0, 1)
			anchor := qtspan.Span{Start: names.Start, End: names.End}

			var candidates []blobloc.Candidate
			if len(offsets) >= 2 {
				candidates = blobloc.FindMultiFile(raw, offsets, anchor)
			} else if len(offsets) == 1 {
				sites := callscan.Scan(raw, m)
				candidates = blobloc.FindSingleFile(raw, offsets[0], sites, anchor)
			} else {
				continue
			}

			for _, cand := range candidates {
				idx := len(results.Trees)
				treeDir := filepath.Join(outDir, fmt.Sprintf("%02d", idx))

				res, err := extractor.Extract(raw, tree.Base, 0, 1, names.Entries, cand.Span.Start, treeDir)
				if err != nil {
					cleanupPartial(treeDir)
					continue
				}

				seenTrees[tree.Base] = true
				results.Trees = append(results.Trees, Report{
					Index:        idx,
					OutDir:       treeDir,
					Container:    m.Kind(),
					Arch:         m.Arch(),
					NameRegion:   names,
					Tree:         tree,
					Blob:         cand.Span,
					FilesWritten: res.FilesWritten,
					DirsCreated:  res.DirsCreated,
					BytesWritten: res.BytesWritten,
				})
				results.FilesWritten += res.FilesWritten
				results.DirsCreated += res.DirsCreated
				results.BytesWritten += res.BytesWritten
				break
			}
		}
	}

	if len(results.Trees) == 0 {
		return Results{}, ErrNotFound
	}
	return results, nil
}

func sortRegionsByLen(regions []rccnames.Region) {
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j].Len() > regions[j-1].Len(); j-- {
			regions[j], regions[j-1] = regions[j-1], regions[j]
		}
	}
}

// cleanupPartial best-effort removes a tree subdirectory a failed
// extraction attempt left behind before the next candidate is tried.
func cleanupPartial(treeDir string) {
	os.RemoveAll(treeDir)
}
