package id

import (
	"encoding/hex"
	"regexp"
	"strings"
	"testing"
	"time"
)

var (
	reHex32  = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reNumber = regexp.MustCompile(`^(TXN|PAY|DSB)-20250906-[A-F0-9]{8}$`)
)

func TestNewID32(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		got := NewID32()
		if !reHex32.MatchString(got) {
			t.Fatalf("not 32-char lowercase hex: %q", got)
		}
		if b, err := hex.DecodeString(got); err != nil || len(b) != 16 {
			t.Fatalf("decode %q: %d bytes, err=%v", got, len(b), err)
		}
		if _, dup := seen[got]; dup {
			t.Fatalf("duplicate id after %d iterations: %q", i, got)
		}
		seen[got] = struct{}{}
	}
}

func TestNewNumberAt(t *testing.T) {
	at := time.Date(2025, 9, 6, 23, 59, 0, 0, time.UTC)
	for _, prefix := range []string{"TXN", "PAY", "DSB"} {
		got := NewNumberAt(prefix, at)
		if !reNumber.MatchString(got) || !strings.HasPrefix(got, prefix+"-") {
			t.Fatalf("unexpected number format: %q", got)
		}
		if NewNumberAt(prefix, at) == got {
			t.Fatalf("two numbers on the same day collided: %q", got)
		}
	}
}
