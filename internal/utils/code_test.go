package utils

import (
	"strings"
	"testing"
)

func TestNewConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewConfirmationCode(8)
		if err != nil {
			t.Fatalf("NewConfirmationCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q has length %d, want 8", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	// 100 draws from a 36^8 space colliding would point at a broken
	// generator, not bad luck.
	if len(seen) < 100 {
		t.Errorf("got %d distinct codes out of 100", len(seen))
	}
}

func TestHashRefreshRawStable(t *testing.T) {
	a := HashRefreshRaw("token-value")
	b := HashRefreshRaw("token-value")
	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == HashRefreshRaw("other") {
		t.Error("distinct inputs must not collide trivially")
	}
	if len(a) != 64 {
		t.Errorf("hex sha256 length = %d, want 64", len(a))
	}
}
