package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/usecase/paymentmethod"
)

type PaymentMethodHandler struct {
	errorWriter
	uc *paymentmethod.Usecase
}

func NewPaymentMethodHandler(uc *paymentmethod.Usecase, log *logging.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{errorWriter: errorWriter{log: log}, uc: uc}
}

type addMethodReq struct {
	Type         string `json:"type"           validate:"required,oneof=card bank_account mobile_money"`
	GatewayToken string `json:"gateway_token"  validate:"required,max=128"`
	CustomerRef  string `json:"customer_ref"   validate:"max=128"`
	Last4        string `json:"last4"          validate:"omitempty,len=4,numeric"`
	// `YYYY-MM`
	ExpiresAt string `json:"expires_at" validate:"omitempty,datetime=2006-01"`
}

func (h *PaymentMethodHandler) Add(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return nil
	}
	var req addMethodReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	in := paymentmethod.AddInput{
		UserID:       userID,
		Type:         ledger.PaymentMethodType(req.Type),
		GatewayToken: req.GatewayToken,
		CustomerRef:  req.CustomerRef,
		Last4:        req.Last4,
	}
	if req.ExpiresAt != "" {
		// valid through the end of the month
		m, _ := time.Parse("2006-01", req.ExpiresAt)
		exp := m.AddDate(0, 1, 0)
		in.ExpiresAt = &exp
	}
	m, err := h.uc.Add(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *PaymentMethodHandler) List(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return nil
	}
	list, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}

func (h *PaymentMethodHandler) Verify(c echo.Context) error {
	id, ok := pathID(c, "method_id")
	if !ok {
		return nil
	}
	m, err := h.uc.Verify(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *PaymentMethodHandler) SetDefault(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return nil
	}
	id, ok := pathID(c, "method_id")
	if !ok {
		return nil
	}
	m, err := h.uc.SetDefault(c.Request().Context(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *PaymentMethodHandler) Deactivate(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return nil
	}
	id, ok := pathID(c, "method_id")
	if !ok {
		return nil
	}
	m, err := h.uc.Deactivate(c.Request().Context(), userID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
