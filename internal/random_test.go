package internal

import (
	"strings"
	"testing"
)

func TestNewCodeLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 4, 8, 32} {
		code, err := NewCode(length)
		if err != nil {
			t.Fatalf("NewCode(%d) failed: %v", length, err)
		}
		if len(code) != length {
			t.Fatalf("expected length %d, got %d", length, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside alphabet", code, r)
			}
		}
	}
}

func TestNewCodeRejectsInvalidLength(t *testing.T) {
	for _, length := range []int{0, -1, 33} {
		if _, err := NewCode(length); err == nil {
			t.Fatalf("expected error for length %d", length)
		}
	}
}

func TestNewCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewCode(8)
		if err != nil {
			t.Fatalf("NewCode failed: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}

func TestNewRefreshTokenShape(t *testing.T) {
	token, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken failed: %v", err)
	}
	if len(token) != RefreshTokenLength {
		t.Fatalf("expected %d characters, got %d", RefreshTokenLength, len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune(refreshAlphabet, r) {
			t.Fatalf("token contains %q outside alphabet", r)
		}
	}
}

func TestNewRefreshTokenUnique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		token, err := NewRefreshToken()
		if err != nil {
			t.Fatalf("NewRefreshToken failed: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate refresh token")
		}
		seen[token] = true
	}
}
