// Package callscan implements the single-file blob-locator fallback:
// scanning an executable's bytes for the handful of x86 instruction forms a
// compiler emits to pass a Qt resource region's address as a function
// argument, and resolving each to the file offset it names. Used only when
// the blob region can't be recovered by delta-chain search (package
// blobloc) because the discovered tree has fewer than two distinct files.
//
// Two call-site shapes are recognized (spec.md §4.6), grounded on
// original_source/src/blob.rs's find_blobs_push / find_blobs_lea:
//
//   - x86 `PUSH imm32` (opcode 0x68): the 32-bit calling convention passes
//     qRegisterResourceData's arguments on the stack, each as a literal
//     address.
//   - x86-64 `LEA reg, [RIP+disp32]` (opcode REX.W 0x8D /r, mod=00 rm=101):
//     the 64-bit calling convention materializes each argument into a
//     register via RIP-relative LEA before the call.
//
// Full disassembly is explicitly out of scope; only these two forms are
// decoded, using golang.org/x/arch/x86/x86asm purely to parse operand
// fields (immediate, ModRM register, displacement) correctly rather than
// hand-rolling byte layout, not to walk an instruction stream — every byte
// offset in the buffer is tried as a possible instruction start, since
// there's no symbol table to anchor real instruction boundaries on.
package callscan

import (
	"golang.org/x/arch/x86/x86asm"

	"qtrex/internal/execmap"
)

// Site is one decoded call-site, resolved from a virtual address embedded
// in the instruction to the file offset it names.
type Site struct {
	InstFileOff int    // file offset of the instruction itself
	TargetOff   int    // file offset the instruction's operand resolves to
	Reg         string // destination register name for a LEA site; empty for PUSH
}

// ScanPushImm32 finds every `PUSH imm32` in buf, treating the immediate as
// an absolute virtual address and resolving it to a file offset via m.
// Appropriate for 32-bit x86 code (execmap.ArchX86).
func ScanPushImm32(buf []byte, m *execmap.Map) []Site {
	var sites []Site
	for off := 0; off+5 <= len(buf); off++ {
		if buf[off] != 0x68 {
			continue
		}
		inst, err := x86asm.Decode(buf[off:], 32)
		if err != nil || inst.Op != x86asm.PUSH || inst.Len != 5 {
			continue
		}
		imm, ok := inst.Args[0].(x86asm.Imm)
		if !ok {
			continue
		}
		target, ok := m.V2F(uint64(uint32(imm)))
		if !ok {
			continue
		}
		sites = append(sites, Site{InstFileOff: off, TargetOff: int(target)})
	}
	return sites
}

// ScanLeaRIP finds every `LEA reg, [RIP+disp32]` in buf, resolving the
// RIP-relative effective address (next-instruction VA + disp32) to a file
// offset via m. Appropriate for x86-64 code (execmap.ArchX86_64).
func ScanLeaRIP(buf []byte, m *execmap.Map) []Site {
	var sites []Site
	for off := 0; off+7 <= len(buf); off++ {
		if buf[off] != 0x48 && buf[off] != 0x4c {
			continue
		}
		if buf[off+1] != 0x8d {
			continue
		}
		inst, err := x86asm.Decode(buf[off:], 64)
		if err != nil || inst.Op != x86asm.LEA {
			continue
		}
		mem, ok := inst.Args[1].(x86asm.Mem)
		if !ok || mem.Base != x86asm.RIP || mem.Index != 0 {
			continue
		}
		reg, ok := inst.Args[0].(x86asm.Reg)
		if !ok {
			continue
		}

		instVA, ok := m.F2V(uint64(off))
		if !ok {
			continue
		}
		targetVA := instVA + uint64(inst.Len) + uint64(mem.Disp)
		targetOff, ok := m.V2F(targetVA)
		if !ok {
			continue
		}
		sites = append(sites, Site{InstFileOff: off, TargetOff: int(targetOff), Reg: reg.String()})
	}
	return sites
}

// Scan runs whichever of ScanPushImm32 / ScanLeaRIP fits m's architecture,
// trying the other as a fallback if the first yields nothing (a binary can
// mix calling conventions across translation units, or m.Arch() can be
// ArchOther for a container execmap failed to identify).
func Scan(buf []byte, m *execmap.Map) []Site {
	switch m.Arch() {
	case execmap.ArchX86_64:
		if sites := ScanLeaRIP(buf, m); len(sites) > 0 {
			return sites
		}
		return ScanPushImm32(buf, m)
	case execmap.ArchX86:
		if sites := ScanPushImm32(buf, m); len(sites) > 0 {
			return sites
		}
		return ScanLeaRIP(buf, m)
	default:
		if sites := ScanLeaRIP(buf, m); len(sites) > 0 {
			return sites
		}
		return ScanPushImm32(buf, m)
	}
}
