package ledger

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindLimitExceeded       Kind = "limit_exceeded"
	KindValidation          Kind = "validation_error"
	KindExternalProcessor   Kind = "external_processor_error"
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// Sentinels, one per kind, so callers can use errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrLimitExceeded       = errors.New("limit exceeded")
	ErrValidation          = errors.New("validation error")
	ErrExternalProcessor   = errors.New("external processor error")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

var sentinels = map[Kind]error{
	KindNotFound:            ErrNotFound,
	KindInvalidState:        ErrInvalidState,
	KindInsufficientFunds:   ErrInsufficientFunds,
	KindLimitExceeded:       ErrLimitExceeded,
	KindValidation:          ErrValidation,
	KindExternalProcessor:   ErrExternalProcessor,
	KindConcurrencyConflict: ErrConcurrencyConflict,
}

// Error is the structured error raised by the ledger core. Msg is safe to show
// to callers: it never carries amounts or account identifiers.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op, what string) *Error { return E(KindNotFound, op, what+" not found") }

func InvalidState(op, format string, args ...any) *Error {
	return E(KindInvalidState, op, fmt.Sprintf(format, args...))
}

func Validation(op, msg string) *Error { return E(KindValidation, op, msg) }

// KindOf reports the taxonomy kind of err, or "" when err is not a ledger error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	for k, s := range sentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return ""
}
