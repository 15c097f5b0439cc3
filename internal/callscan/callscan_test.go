package callscan

import (
	"testing"

	"qtrex/internal/execmap"
)

// buildMappedELF64 builds a minimal ELF64 x86-64 executable with one
// PT_LOAD segment mapping the entire file 1:1 at virtual address 0x400000,
// large enough to embed test call-site bytes and have their targets land
// inside the mapped range.
func buildMappedELF64(t *testing.T, size int) []byte {
	t.Helper()

	const ehsize = 64
	const phsize = 56

	buf := make([]byte, size)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2
	buf[5] = 1
	buf[6] = 1

	le16 := func(off int, v uint16) {
		buf[off], buf[off+1] = byte(v), byte(v>>8)
	}
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

func TestScanPushImm32FindsSite(t *testing.T) {
	raw := buildMappedELF64(t, 0x400)
	const instOff = 0x200
	targetVA := uint32(0x400300)
	raw[instOff] = 0x68
	raw[instOff+1] = byte(targetVA)
	raw[instOff+2] = byte(targetVA >> 8)
	raw[instOff+3] = byte(targetVA >> 16)
	raw[instOff+4] = byte(targetVA >> 24)

	m, err := execmap.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sites := ScanPushImm32(raw, m)
	var found *Site
	for i := range sites {
		if sites[i].InstFileOff == instOff {
			found = &sites[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("no PUSH site found at offset %#x among %+v", instOff, sites)
	}
	if found.TargetOff != 0x300 {
		t.Fatalf("TargetOff = %#x, want 0x300", found.TargetOff)
	}
}

func TestScanLeaRIPFindsSite(t *testing.T) {
	raw := buildMappedELF64(t, 0x400)
	const instOff = 0x210
	// REX.W + LEA + ModRM(mod=00,reg=RDX,rm=101) + disp32
	raw[instOff] = 0x48
	raw[instOff+1] = 0x8d
	raw[instOff+2] = 0x15
	// instVA = 0x400000+0x210 = 0x400210; inst length 7 -> next = 0x400217
	// want targetVA = 0x400380 -> disp = 0x169
	disp := uint32(0x169)
	raw[instOff+3] = byte(disp)
	raw[instOff+4] = byte(disp >> 8)
	raw[instOff+5] = byte(disp >> 16)
	raw[instOff+6] = byte(disp >> 24)

	m, err := execmap.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sites := ScanLeaRIP(raw, m)
	var found *Site
	for i := range sites {
		if sites[i].InstFileOff == instOff {
			found = &sites[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("no LEA site found at offset %#x among %+v", instOff, sites)
	}
	if found.TargetOff != 0x380 {
		t.Fatalf("TargetOff = %#x, want 0x380", found.TargetOff)
	}
	if found.Reg == "" {
		t.Fatalf("expected a non-empty destination register name")
	}
}
