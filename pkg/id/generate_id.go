package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewNumber returns a human-readable reference such as TXN-20250906-9F2C41AB.
func NewNumber(prefix string) string {
	return NewNumberAt(prefix, time.Now().UTC())
}

func NewNumberAt(prefix string, at time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return prefix + "-" + at.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b))
}
