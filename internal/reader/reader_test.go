package reader

import "testing"

func TestU16(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	v, err := U16(buf, 0)
	if err != nil || v != 0x0102 {
		t.Fatalf("U16(0) = %x, %v", v, err)
	}
	v, err = U16(buf, 2)
	if err != nil || v != 0x0304 {
		t.Fatalf("U16(2) = %x, %v", v, err)
	}
	if _, err := U16(buf, 3); err != ErrBounds {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
}

func TestU32(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x01, 0x00}
	v, err := U32(buf, 0)
	if err != nil || v != 256 {
		t.Fatalf("U32 = %v, %v", v, err)
	}
	if _, err := U32(buf, 1); err != ErrBounds {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
}

func TestU64(t *testing.T) {
	buf := make([]byte, 8)
	buf[7] = 1
	v, err := U64(buf, 0)
	if err != nil || v != 1 {
		t.Fatalf("U64 = %v, %v", v, err)
	}
	if _, err := U64(buf, 1); err != ErrBounds {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
}

func TestBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	got, err := Bytes(buf, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Bytes = %v, want %v", got, want)
		}
	}
	if _, err := Bytes(buf, 3, 10); err != ErrBounds {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
	if _, err := Bytes(buf, -1, 1); err != ErrBounds {
		t.Fatalf("expected ErrBounds, got %v", err)
	}
}
