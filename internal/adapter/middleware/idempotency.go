package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"escrow-ledger/internal/infrastructure/logging"
)

// storeTimeout bounds the reservation round trip before the handler runs.
const storeTimeout = 2 * time.Second

// capture tees the handler's response so it can be stored for replay.
type capture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *capture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// IdempotencyMiddleware guards mutating money-movement calls with a redis
// ResponseStore holding answers for ttl.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log *logging.Logger) echo.MiddlewareFunc {
	return Idempotency(NewResponseStore(rdb, ttl), log)
}

// Idempotency makes a POST/PUT/PATCH/DELETE safe to retry. Each request names
// itself with Ax-Request-Id, Ax-Request-At and Ax-User-Id. The first call
// reserves the id and its answer is stored; retries with the same body get
// the stored answer, a different body or a call still in flight gets 409.
// A 5xx answer is not stored, so the client may retry the same id.
func Idempotency(store *ResponseStore, log *logging.Logger) echo.MiddlewareFunc {
	logger := logging.OrNop(log).Named("idempotency")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			caller, err := readCallerHeaders(req.Header, nowUTC())
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			key := requestKey{Method: req.Method, Route: c.Path(), UserID: caller.UserID, RequestID: caller.RequestID}
			rec := record{
				Fingerprint: fingerprint(body),
				RequestID:   caller.RequestID,
				RequestAt:   caller.RequestAt,
				StoredAt:    nowUTC(),
			}

			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()
			reserved, err := store.Reserve(ctx, key, rec)
			if err != nil {
				logger.Error("idempotency store unavailable", zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !reserved {
				return replay(c, store, key, rec.Fingerprint, logger)
			}

			w := &capture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be gone; the outcome must still land
			bg := context.Background()
			if w.status >= http.StatusInternalServerError {
				if err := store.Release(bg, key); err != nil {
					logger.Warn("release idempotency key", zap.Stringer("key", key), zap.Error(err))
				}
				return nil
			}
			rec.Status = w.status
			rec.Response = w.body.Bytes()
			rec.StoredAt = nowUTC()
			if err := store.Complete(bg, key, rec); err != nil {
				logger.Warn("store idempotent response", zap.Stringer("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// replay answers a request whose key is already taken.
func replay(c echo.Context, store *ResponseStore, key requestKey, fp string, logger *logging.Logger) error {
	cur, err := store.Load(c.Request().Context(), key)
	if err != nil && !errors.Is(err, errNoRecord) {
		logger.Warn("load idempotency record", zap.Stringer("key", key), zap.Error(err))
	}
	switch {
	case cur.Fingerprint != "" && cur.Fingerprint != fp:
		return c.JSON(http.StatusConflict, map[string]string{"error": HeaderRequestID + " reused with different body"})
	case cur.replayable():
		return c.Blob(cur.Status, echo.MIMEApplicationJSON, cur.Response)
	default:
		return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
	}
}
