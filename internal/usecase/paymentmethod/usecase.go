package paymentmethod

import (
	"context"
	"time"

	"go.uber.org/zap"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/pkg/id"
)

// Usecase keeps the payment methods a user can fund escrow from.
type Usecase struct {
	d usecase.Deps
}

func NewUsecase(d usecase.Deps) *Usecase { return &Usecase{d: d.WithDefaults()} }

// Add registers a method; it cannot be charged until Verify succeeds.
func (u *Usecase) Add(ctx context.Context, in AddInput) (m *ledger.PaymentMethod, err error) {
	const op = "payment_method.add"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	switch in.Type {
	case ledger.MethodCard, ledger.MethodBankAccount, ledger.MethodMobileMoney:
	default:
		return nil, ledger.Validation(op, "unknown payment method type")
	}
	if in.UserID == "" || in.GatewayToken == "" {
		return nil, ledger.Validation(op, "user and gateway token are required")
	}
	if len(in.Last4) > 4 {
		return nil, ledger.Validation(op, "last4 is at most 4 characters")
	}

	m = &ledger.PaymentMethod{
		ID:           id.NewID32(),
		UserID:       in.UserID,
		Type:         in.Type,
		Verification: ledger.VerificationPending,
		Active:       true,
		GatewayToken: in.GatewayToken,
		CustomerRef:  in.CustomerRef,
		Last4:        in.Last4,
		ExpiresAt:    in.ExpiresAt,
	}
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error { return r.PaymentMethods.Create(ctx, m) })
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Verify asks the processor to check the method. A rejection is recorded on
// the method, not returned as an error. The first usable method of a user
// becomes the default; a rejected default hands over to another usable one.
func (u *Usecase) Verify(ctx context.Context, methodID string) (m *ledger.PaymentMethod, err error) {
	const op = "payment_method.verify"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if u.d.Gateway == nil {
		return nil, ledger.E(ledger.KindExternalProcessor, op, "no payment gateway configured")
	}
	if m, err = u.get(ctx, methodID); err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, ledger.InvalidState(op, "payment method is inactive")
	}

	res, gerr := u.d.Gateway.VerifyPaymentMethod(ctx, m.GatewayToken)
	if gerr != nil {
		return nil, &ledger.Error{Kind: ledger.KindExternalProcessor, Op: op, Msg: "verification unavailable", Err: gerr}
	}

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if m, err = r.PaymentMethods.GetByID(ctx, methodID); err != nil {
			return err
		}
		now := u.d.Now()
		if !res.Verified {
			wasDefault := m.IsDefault
			m.Verification = ledger.VerificationFailed
			m.IsDefault = false
			if err := r.PaymentMethods.Save(ctx, m); err != nil {
				return err
			}
			if !wasDefault {
				return nil
			}
			return promoteDefault(ctx, r, m.UserID, m.ID, now)
		}
		m.Verification = ledger.VerificationVerified
		m.VerifiedAt = &now

		others, err := r.PaymentMethods.ListByUser(ctx, m.UserID)
		if err != nil {
			return err
		}
		m.IsDefault = true
		for i := range others {
			if o := &others[i]; o.ID != m.ID && o.IsDefault && o.Usable(now) {
				m.IsDefault = false
				break
			}
		}
		if m.IsDefault {
			if err := r.PaymentMethods.ClearDefault(ctx, m.UserID); err != nil {
				return err
			}
		}
		return r.PaymentMethods.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	u.d.Logger.Info("payment method verified",
		zap.String("payment_method_id", m.ID),
		zap.String("verification", string(m.Verification)),
	)
	return m, nil
}

// SetDefault makes methodID the only default of userID.
func (u *Usecase) SetDefault(ctx context.Context, userID, methodID string) (m *ledger.PaymentMethod, err error) {
	const op = "payment_method.set_default"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if m, err = owned(ctx, r, op, userID, methodID); err != nil {
			return err
		}
		if !m.Usable(u.d.Now()) {
			return ledger.InvalidState(op, "payment method is not usable")
		}
		if err := r.PaymentMethods.ClearDefault(ctx, userID); err != nil {
			return err
		}
		m.IsDefault = true
		return r.PaymentMethods.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Deactivate retires a method. When it was the default, the newest other
// usable method takes over.
func (u *Usecase) Deactivate(ctx context.Context, userID, methodID string) (m *ledger.PaymentMethod, err error) {
	const op = "payment_method.deactivate"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if m, err = owned(ctx, r, op, userID, methodID); err != nil {
			return err
		}
		if !m.Active {
			return ledger.InvalidState(op, "payment method is already inactive")
		}
		wasDefault := m.IsDefault
		m.Active = false
		m.IsDefault = false
		if err := r.PaymentMethods.Save(ctx, m); err != nil {
			return err
		}
		if !wasDefault {
			return nil
		}
		return promoteDefault(ctx, r, userID, m.ID, u.d.Now())
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (u *Usecase) List(ctx context.Context, userID string) ([]ledger.PaymentMethod, error) {
	var out []ledger.PaymentMethod
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.PaymentMethods.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

func (u *Usecase) get(ctx context.Context, methodID string) (*ledger.PaymentMethod, error) {
	var m *ledger.PaymentMethod
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		m, err = r.PaymentMethods.GetByID(ctx, methodID)
		return err
	})
	return m, err
}

// promoteDefault makes the newest usable method of userID other than
// formerID the default. It is a no-op when none is left.
func promoteDefault(ctx context.Context, r uow.Repos, userID, formerID string, now time.Time) error {
	others, err := r.PaymentMethods.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	// newest first
	for i := range others {
		if o := &others[i]; o.ID != formerID && o.Usable(now) {
			o.IsDefault = true
			return r.PaymentMethods.Save(ctx, o)
		}
	}
	return nil
}

// owned hides methods of other users behind NotFound.
func owned(ctx context.Context, r uow.Repos, op, userID, methodID string) (*ledger.PaymentMethod, error) {
	m, err := r.PaymentMethods.GetByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ledger.NotFound(op, "payment method")
	}
	return m, nil
}
