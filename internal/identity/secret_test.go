package identity

import (
	"strings"
	"testing"
)

// TestNewSecret_Length は生成シークレットが固定長であることをテストする。
func TestNewSecret_Length(t *testing.T) {
	for i := 0; i < 100; i++ {
		if got := newSecret(); len(got) != secretLength {
			t.Fatalf("len(newSecret()) = %d, want %d", len(got), secretLength)
		}
	}
}

// TestNewSecret_Alphabet は生成シークレットが英数字のみで構成されることをテストする。
func TestNewSecret_Alphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := newSecret()
		for _, c := range s {
			if !strings.ContainsRune(secretAlphabet, c) {
				t.Fatalf("secret %q contains invalid character %q", s, c)
			}
		}
	}
}

// TestNewSecret_NoRepeat は連続生成したシークレットが予測可能に繰り返さないことをテストする。
// 62^12通りの空間で100件の衝突が起きる確率は無視できる。
func TestNewSecret_NoRepeat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := newSecret()
		if seen[s] {
			t.Fatalf("secret %q repeated", s)
		}
		seen[s] = true
	}
}
