package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Request headers every mutating call must carry.
const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	// HeaderUserID names the acting user; replays are scoped to it.
	HeaderUserID = "Ax-User-Id"
)

// allowed client/server clock skew on Ax-Request-At
const maxClockSkew = 10 * time.Minute

var (
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
)

func nowUTC() time.Time { return time.Now().UTC() }

// fingerprint identifies a request body so a reused request id with a
// different payload can be told apart from a retry.
func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// requestKey scopes a stored response to one user's call of one route.
type requestKey struct {
	Method    string
	Route     string
	UserID    string
	RequestID string
}

func (k requestKey) String() string {
	return strings.Join([]string{"idemp", "escrow", strings.ToLower(k.Method), k.Route, k.UserID, k.RequestID}, ":")
}

// callerHeaders is what a mutating request identifies itself with.
type callerHeaders struct {
	RequestID string
	RequestAt time.Time
	UserID    string
}

// readCallerHeaders validates the idempotency headers against now. The error
// text is safe to return to the client.
func readCallerHeaders(h http.Header, now time.Time) (callerHeaders, error) {
	var out callerHeaders

	out.RequestID = strings.TrimSpace(h.Get(HeaderRequestID))
	switch {
	case out.RequestID == "":
		return out, errors.New("missing " + HeaderRequestID)
	case !validRequestID(out.RequestID):
		return out, errors.New("invalid " + HeaderRequestID + " format")
	}

	at, err := parseRequestAt(h.Get(HeaderRequestAt))
	if err != nil {
		return out, err
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return out, errors.New(HeaderRequestAt + " too skewed")
	}
	out.RequestAt = at

	out.UserID = strings.TrimSpace(h.Get(HeaderUserID))
	switch {
	case out.UserID == "":
		return out, errors.New("missing " + HeaderUserID)
	case !reHex32.MatchString(out.UserID):
		return out, errors.New("invalid " + HeaderUserID)
	}
	return out, nil
}

// validRequestID accepts a lowercase uuid (v1-v5) or 32 lowercase hex chars.
func validRequestID(id string) bool {
	return reUUID.MatchString(id) || reHex32.MatchString(id)
}

// parseRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339 with
// an explicit zone. Naive local timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing " + HeaderRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
}
