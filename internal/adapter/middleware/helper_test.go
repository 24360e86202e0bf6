package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestRequestKey_String(t *testing.T) {
	k := requestKey{Method: "POST", Route: "/v1/transfers", UserID: strings.Repeat("b", 32), RequestID: strings.Repeat("a", 32)}
	want := "idemp:escrow:post:/v1/transfers:" + strings.Repeat("b", 32) + ":" + strings.Repeat("a", 32)
	if got := k.String(); got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	a := fingerprint([]byte(`{"amount":"10.00"}`))
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d", len(a))
	}
	if a != fingerprint([]byte(`{"amount":"10.00"}`)) {
		t.Fatalf("fingerprint not stable")
	}
	if a == fingerprint([]byte(`{"amount":"10.01"}`)) {
		t.Fatalf("different bodies share a fingerprint")
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88", true},
		{strings.Repeat("a", 32), true},
		{"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88", true},
		{"", false},
		{strings.Repeat("A", 32), false},
		{"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8", false},
		{"3f9a6a1b3d544fbe8b3a6b3e8d6b2c880", false},
		{strings.Repeat("z", 32), false},
		{"3F9A6A1B-3D54-4FBE-8B3A-6B3E8D6B2C88", false},
		{"3f9a6a1b-3d54-9fbe-8b3a-6b3e8d6b2c88", false},
	}
	for _, tc := range tests {
		if got := validRequestID(tc.id); got != tc.want {
			t.Fatalf("validRequestID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestParseRequestAt(t *testing.T) {
	sec := time.Now().UTC().Unix()
	ms := time.Now().UTC().UnixMilli()
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"epoch seconds", strconv.FormatInt(sec, 10), time.Unix(sec, 0).UTC()},
		{"epoch millis", strconv.FormatInt(ms, 10), time.UnixMilli(ms).UTC()},
		{"rfc3339 offset", "2025-09-05T10:00:00+07:00", time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)},
		{"rfc3339 zulu", "2025-09-05T03:00:00Z", time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)},
		{"rfc3339 nano", "2025-09-05T03:00:00.5Z", time.Date(2025, 9, 5, 3, 0, 0, 500_000_000, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseRequestAt(tc.raw)
			if err != nil {
				t.Fatalf("parseRequestAt(%q): %v", tc.raw, err)
			}
			if !got.Equal(tc.want) || got.Location() != time.UTC {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	for _, raw := range []string{"", "not-a-time", "2025-09-05T10:00:00", "1736123456abc"} {
		if _, err := parseRequestAt(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestReadCallerHeaders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := func() http.Header {
		h := http.Header{}
		h.Set(HeaderRequestID, strings.Repeat("a", 32))
		h.Set(HeaderRequestAt, now.Format(time.RFC3339))
		h.Set(HeaderUserID, strings.Repeat("b", 32))
		return h
	}

	got, err := readCallerHeaders(valid(), now)
	if err != nil {
		t.Fatalf("valid headers: %v", err)
	}
	if got.UserID != strings.Repeat("b", 32) || !got.RequestAt.Equal(now) {
		t.Fatalf("caller = %+v", got)
	}

	tests := []struct {
		name   string
		mutate func(h http.Header)
		want   string
	}{
		{"missing request id", func(h http.Header) { h.Del(HeaderRequestID) }, "missing " + HeaderRequestID},
		{"bad request id", func(h http.Header) { h.Set(HeaderRequestID, "NOT-VALID") }, "invalid " + HeaderRequestID},
		{"bad request at", func(h http.Header) { h.Set(HeaderRequestAt, "yesterday") }, HeaderRequestAt},
		{"skewed past", func(h http.Header) { h.Set(HeaderRequestAt, now.Add(-maxClockSkew-time.Minute).Format(time.RFC3339)) }, "too skewed"},
		{"skewed future", func(h http.Header) { h.Set(HeaderRequestAt, now.Add(maxClockSkew+time.Minute).Format(time.RFC3339)) }, "too skewed"},
		{"missing user", func(h http.Header) { h.Del(HeaderUserID) }, "missing " + HeaderUserID},
		{"bad user", func(h http.Header) { h.Set(HeaderUserID, "not32hex") }, "invalid " + HeaderUserID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := valid()
			tc.mutate(h)
			_, err := readCallerHeaders(h, now)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}
