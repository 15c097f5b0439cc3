// Package execmap parses PE and ELF section/program-header tables and
// exposes bidirectional virtual-address <-> file-offset translation, the
// opaque "executable map" service the Qt resource recovery engine treats
// call-site analysis and blob-base translation through.
package execmap

import (
	"debug/elf"
	"debug/pe"
	"fmt"
	"sort"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Kind identifies the container format of the parsed executable.
type Kind int

const (
	Unknown Kind = iota
	PE
	ELF32
	ELF64
)

func (k Kind) String() string {
	switch k {
	case PE:
		return "PE"
	case ELF32:
		return "ELF32"
	case ELF64:
		return "ELF64"
	default:
		return "Unknown"
	}
}

// Arch identifies the instruction set, used to pick whether
// internal/callscan scans for PUSH imm32 or RIP-relative LEA sites first.
type Arch int

const (
	ArchOther Arch = iota
	ArchX86
	ArchX86_64
)

func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86-64"
	default:
		return "unknown"
	}
}

// seg is one mapped region: a contiguous virtual-address range backed by a
// contiguous file-offset range (they may differ in length; memory size can
// exceed file size for BSS-like tails, in which case only the overlapping
// prefix is addressable from the file).
type seg struct {
	vaddr, vsize uint64
	foff, fsize  uint64
}

// symbol is a named location used only by NearestSymbol, never for
// discovery itself (spec.md requires the engine work without symbols).
type symbol struct {
	addr uint64
	name string
}

// Map is the address-translation service described by spec.md §4.3.
type Map struct {
	kind Kind
	arch Arch
	segs []seg
	syms []symbol
}

// Parse detects the container format of raw and builds the address map. An
// unrecognized container yields a Map with Kind()==Unknown rather than an
// error — the engine falls back to pure heuristic discovery in that case.
func Parse(raw []byte) (*Map, error) {
	if m, err := parseELF(raw); err == nil {
		return m, nil
	}
	if m, err := parsePE(raw); err == nil {
		return m, nil
	}
	return &Map{kind: Unknown, arch: ArchOther}, nil
}

func parseELF(raw []byte) (*Map, error) {
	f, err := elf.NewFile(newReaderAt(raw))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &Map{kind: ELF64, arch: archFromELFMachine(f.Machine)}
	if f.Class == elf.ELFCLASS32 {
		m.kind = ELF32
	}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		m.segs = append(m.segs, seg{
			vaddr: p.Vaddr, vsize: p.Memsz,
			foff: p.Off, fsize: p.Filesz,
		})
	}

	if syms, err := f.Symbols(); err == nil {
		m.addSymbols(syms)
	}
	if dynsyms, err := f.DynamicSymbols(); err == nil {
		m.addSymbols(dynsyms)
	}

	if len(m.segs) == 0 {
		return nil, fmt.Errorf("execmap: no PT_LOAD segments")
	}
	sort.Slice(m.segs, func(i, j int) bool { return m.segs[i].vaddr < m.segs[j].vaddr })
	return m, nil
}

func (m *Map) addSymbols(syms []elf.Symbol) {
	for _, s := range syms {
		if s.Value == 0 || s.Name == "" {
			continue
		}
		m.syms = append(m.syms, symbol{addr: s.Value, name: s.Name})
	}
}

func archFromELFMachine(mach elf.Machine) Arch {
	switch mach {
	case elf.EM_386:
		return ArchX86
	case elf.EM_X86_64:
		return ArchX86_64
	default:
		return ArchOther
	}
}

func parsePE(raw []byte) (*Map, error) {
	f, err := pe.NewFile(newReaderAt(raw))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &Map{kind: PE, arch: archFromPEMachine(f.Machine)}

	for _, s := range f.Sections {
		if s.Size == 0 && s.VirtualSize == 0 {
			continue
		}
		m.segs = append(m.segs, seg{
			vaddr: uint64(s.VirtualAddress), vsize: uint64(s.VirtualSize),
			foff: uint64(s.Offset), fsize: uint64(s.Size),
		})
	}

	if len(m.segs) == 0 {
		return nil, fmt.Errorf("execmap: no PE sections")
	}
	sort.Slice(m.segs, func(i, j int) bool { return m.segs[i].vaddr < m.segs[j].vaddr })
	return m, nil
}

func archFromPEMachine(mach uint16) Arch {
	switch mach {
	case 0x14c: // IMAGE_FILE_MACHINE_I386
		return ArchX86
	case 0x8664: // IMAGE_FILE_MACHINE_AMD64
		return ArchX86_64
	default:
		return ArchOther
	}
}

// Kind reports the parsed container format.
func (m *Map) Kind() Kind { return m.kind }

// Arch reports the parsed instruction set architecture.
func (m *Map) Arch() Arch { return m.arch }

// V2F translates a virtual address to a file offset. ok is false when va
// falls outside every mapped segment, or beyond the segment's file-backed
// prefix (mapped-but-zero-filled BSS tail).
func (m *Map) V2F(va uint64) (off uint64, ok bool) {
	for _, s := range m.segs {
		if va >= s.vaddr && va < s.vaddr+minU64(s.vsize, s.fsize) {
			return s.foff + (va - s.vaddr), true
		}
	}
	return 0, false
}

// F2V translates a file offset back to a virtual address.
func (m *Map) F2V(foff uint64) (va uint64, ok bool) {
	for _, s := range m.segs {
		if foff >= s.foff && foff < s.foff+minU64(s.vsize, s.fsize) {
			return s.vaddr + (foff - s.foff), true
		}
	}
	return 0, false
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// NearestSymbol returns the name of the symbol with the greatest address
// not exceeding va, demangled if it looks like an Itanium C++ mangled
// name. It is a readability helper only: discovery never depends on its
// result, and neither --explain nor the logs call it.
func (m *Map) NearestSymbol(va uint64) (name string, ok bool) {
	best := symbol{}
	found := false
	for _, s := range m.syms {
		if s.addr <= va && (!found || s.addr > best.addr) {
			best = s
			found = true
		}
	}
	if !found {
		return "", false
	}
	if strings.HasPrefix(best.name, "_Z") {
		if d := demangle.Filter(best.name, demangle.NoClones); d != "" {
			return d, true
		}
	}
	return best.name, true
}
