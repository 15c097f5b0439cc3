package qthash

import "testing"

func TestHashEmpty(t *testing.T) {
	if got := Hash(""); got != 0 {
		t.Fatalf("Hash(\"\") = %d, want 0", got)
	}
}

func TestHashDeterministic(t *testing.T) {
	for _, s := range []string{"hello", "world", "icons/foo.png", "a", "index.html"} {
		a := Hash(s)
		b := Hash(s)
		if a != b {
			t.Fatalf("Hash(%q) not deterministic: %d != %d", s, a, b)
		}
	}
}

// TestHashKnownVectors checks the fold against hand-computed values for
// short strings, confirming the per-character accumulation order and the
// top-nibble fold/mask sequence.
func TestHashKnownVectors(t *testing.T) {
	want := map[string]uint32{
		"":  0,
		"a": 0x61,
		"ab": func() uint32 {
			h := uint32(0x61)
			h = (h << 4) + uint32('b')
			return h
		}(),
	}
	for s, w := range want {
		if got := Hash(s); got != w {
			t.Fatalf("Hash(%q) = %#x, want %#x", s, got, w)
		}
	}
}

func TestHashDistinctStringsUsuallyDiffer(t *testing.T) {
	if Hash("foo") == Hash("bar") {
		t.Fatalf("unexpected collision between foo and bar")
	}
}
