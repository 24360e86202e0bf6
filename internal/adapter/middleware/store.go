package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// reservationTTL bounds how long a crashed handler can block its request id.
const reservationTTL = 60 * time.Second

var errNoRecord = errors.New("idempotency record not found")

// record is what the store keeps per request key. A reservation has Pending
// set and no response yet.
type record struct {
	Pending     bool      `json:"pending"`
	Status      int       `json:"status,omitempty"`
	Response    []byte    `json:"response,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	RequestID   string    `json:"request_id"`
	RequestAt   time.Time `json:"request_at"`
	StoredAt    time.Time `json:"stored_at"`
}

// replayable reports whether r holds a finished response.
func (r record) replayable() bool { return !r.Pending && r.Status != 0 && len(r.Response) > 0 }

// ResponseStore keeps reservations and finished responses in redis.
type ResponseStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResponseStore keeps finished responses for ttl.
func NewResponseStore(rdb *redis.Client, ttl time.Duration) *ResponseStore {
	return &ResponseStore{rdb: rdb, ttl: ttl}
}

// Reserve claims key for a new request. It returns false when the key is
// already reserved or answered.
func (s *ResponseStore) Reserve(ctx context.Context, key requestKey, r record) (bool, error) {
	r.Pending = true
	payload, err := json.Marshal(r)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key.String(), payload, reservationTTL).Result()
}

func (s *ResponseStore) Load(ctx context.Context, key requestKey) (record, error) {
	var r record
	raw, err := s.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, errNoRecord
	}
	if err != nil {
		return r, err
	}
	return r, json.Unmarshal(raw, &r)
}

// Complete replaces the reservation with the finished response.
func (s *ResponseStore) Complete(ctx context.Context, key requestKey, r record) error {
	r.Pending = false
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key.String(), payload, s.ttl).Err()
}

// Release drops the key so the same request id may be retried.
func (s *ResponseStore) Release(ctx context.Context, key requestKey) error {
	return s.rdb.Del(ctx, key.String()).Err()
}
