package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"escrow-ledger/internal/infrastructure/metrics"
)

// CircuitReporter exposes the breaker guarding the payment processor.
type CircuitReporter interface {
	State() metrics.CircuitState
}

type Handler struct {
	processor CircuitReporter
}

// NewHandler serves /health. processor may be nil when no breaker wraps the
// payment gateway.
func NewHandler(processor CircuitReporter) *Handler { return &Handler{processor: processor} }

// Health reports "degraded" while the processor breaker is not closed.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.processor != nil {
		state := h.processor.State()
		body["processor"] = state.String()
		if state != metrics.CircuitClosed {
			body["status"] = "degraded"
		}
	}
	return c.JSON(http.StatusOK, body)
}
