package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"escrow-ledger/internal/infrastructure/logging"
	ucDisbursement "escrow-ledger/internal/usecase/disbursement"
)

type DisbursementHandler struct {
	errorWriter
	uc  *ucDisbursement.Usecase
	now func() time.Time
}

func NewDisbursementHandler(uc *ucDisbursement.Usecase, log *logging.Logger) *DisbursementHandler {
	return &DisbursementHandler{
		errorWriter: errorWriter{log: log},
		uc:          uc,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type createDisbursementReq struct {
	LoanID          string  `json:"loan_id"            validate:"required,hex32"`
	BorrowerID      string  `json:"borrower_id"        validate:"omitempty,hex32"`
	EscrowAccountID *string `json:"escrow_account_id"  validate:"omitempty,hex32"`
	Amount          string  `json:"amount"             validate:"required,money"`
}

type installmentReq struct {
	Amount string `json:"amount"    validate:"required,money"`
	// canonical date `YYYY-MM-DD`, read as UTC midnight
	DueDate string `json:"due_date"  validate:"required,datetime=2006-01-02"`
}

type scheduleReq struct {
	Installments []installmentReq `json:"installments" validate:"required,min=1,dive"`
}

type processDisbursementReq struct {
	// empty releases everything still pending
	Amount string `json:"amount" validate:"omitempty,money"`
}

func (h *DisbursementHandler) Create(c echo.Context) error {
	var req createDisbursementReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	ds, err := h.uc.Create(c.Request().Context(), ucDisbursement.CreateInput{
		LoanID:          req.LoanID,
		BorrowerID:      req.BorrowerID,
		EscrowAccountID: req.EscrowAccountID,
		Amount:          money(req.Amount),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, ds)
}

func (h *DisbursementHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "disbursement_id")
	if !ok {
		return nil
	}
	ds, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *DisbursementHandler) Schedule(c echo.Context) error {
	id, ok := pathID(c, "disbursement_id")
	if !ok {
		return nil
	}
	var req scheduleReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	items := make([]ucDisbursement.InstallmentInput, 0, len(req.Installments))
	for _, it := range req.Installments {
		due, _ := time.Parse(time.DateOnly, it.DueDate)
		items = append(items, ucDisbursement.InstallmentInput{Amount: money(it.Amount), DueDate: due})
	}
	ds, err := h.uc.Schedule(c.Request().Context(), id, items)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *DisbursementHandler) Approve(c echo.Context) error {
	id, ok := pathID(c, "disbursement_id")
	if !ok {
		return nil
	}
	var req approvePayoutReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	ds, err := h.uc.Approve(c.Request().Context(), id, ucDisbursement.ApproveInput{ApproverID: req.ApproverID, Notes: req.Notes})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *DisbursementHandler) Process(c echo.Context) error {
	id, ok := pathID(c, "disbursement_id")
	if !ok {
		return nil
	}
	var req processDisbursementReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	var amount *decimal.Decimal
	if req.Amount != "" {
		d := money(req.Amount)
		amount = &d
	}
	ds, err := h.uc.Process(c.Request().Context(), id, amount)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

// ProcessScheduled runs the installment sweep as of now, or as of the
// `as_of` query param (RFC3339).
func (h *DisbursementHandler) ProcessScheduled(c echo.Context) error {
	asOf := h.now()
	if raw := c.QueryParam("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidQuery("as_of").Error()})
		}
		asOf = t.UTC()
	}
	res, err := h.uc.ProcessScheduledBatch(c.Request().Context(), asOf)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
