// Package errors defines the error classes shared by the settlement engine and
// its collaborators. Every sentinel created with New matches both itself and
// its class under errors.Is, so callers can branch on either granularity.
package errors

import stderrors "errors"

// Error classes.
var (
	ErrValidation    = stderrors.New("validation error")
	ErrAuthorization = stderrors.New("authorization error")
	ErrArithmetic    = stderrors.New("arithmetic error")
	ErrLedger        = stderrors.New("ledger error")
)

// ErrOverflow is returned by checked arithmetic whenever a result would wrap or
// underflow.
var ErrOverflow = New(ErrArithmetic, "arithmetic overflow")

// Classified is a sentinel error tagged with one of the error classes.
type Classified struct {
	class error
	msg   string
}

// New returns a sentinel that reports msg and unwraps to class.
func New(class error, msg string) *Classified {
	return &Classified{class: class, msg: msg}
}

func (e *Classified) Error() string { return e.msg }

// Unwrap exposes the error class to errors.Is and errors.As.
func (e *Classified) Unwrap() error { return e.class }

// Class returns the class of the supplied error, or nil when err does not
// belong to any known class.
func Class(err error) error {
	for _, class := range []error{ErrValidation, ErrAuthorization, ErrArithmetic, ErrLedger} {
		if stderrors.Is(err, class) {
			return class
		}
	}
	return nil
}

// ClassName returns a short label for the class of err, suitable for metrics.
func ClassName(err error) string {
	switch Class(err) {
	case ErrValidation:
		return "validation"
	case ErrAuthorization:
		return "authorization"
	case ErrArithmetic:
		return "arithmetic"
	case ErrLedger:
		return "ledger"
	default:
		return "unknown"
	}
}
