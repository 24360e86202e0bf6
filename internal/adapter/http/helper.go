package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/logging"
)

var errInvalidBody = errors.New("invalid body")

// bindValid binds the JSON body into req and validates it. On failure the
// response is already written and the returned error is errInvalidBody.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
		return errInvalidBody
	}
	if err := c.Validate(req); err != nil {
		_ = c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
		return errInvalidBody
	}
	return nil
}

// done turns the errInvalidBody marker back into a handled response.
func done(err error) error {
	if errors.Is(err, errInvalidBody) {
		return nil
	}
	return err
}

func pathID(c echo.Context, name string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + name + " path param"})
		return "", false
	}
	return v, true
}

// money parses a value that already passed the money validator.
func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil && n > 0 {
		return n
	}
	return def
}

// Map domain errors → HTTP codes
func statusOf(kind ledger.Kind) int {
	switch kind {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindInvalidState, ledger.KindConcurrencyConflict:
		return http.StatusConflict
	case ledger.KindInsufficientFunds, ledger.KindLimitExceeded:
		return http.StatusUnprocessableEntity
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindExternalProcessor:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorWriter is embedded by every handler that maps usecase errors.
type errorWriter struct{ log *logging.Logger }

func (w errorWriter) fail(c echo.Context, err error) error {
	kind := ledger.KindOf(err)
	code := statusOf(kind)
	if code == http.StatusInternalServerError {
		logging.OrNop(w.log).Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	msg := err.Error()
	var le *ledger.Error
	if errors.As(err, &le) && le.Msg != "" {
		msg = le.Msg
	}
	return c.JSON(code, ErrorResponse{Error: msg, Kind: string(kind)})
}
