package library

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the caller lacks the role or membership status an operation requires.
	ErrUnauthorized = errors.New("authorization error")
	// ErrInvalidState means the operation is not allowed in the current lifecycle window.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientBalance means the requested amount is larger than the relevant balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvariant should never surface, it means the state is corrupt.
	ErrInvariant = errors.New("invariant violation")
)

// Rejection is returned by every failed state change. Error() is the bare reason so callers can
// compare it against the documented messages, errors.Is matches the kind.
type Rejection struct {
	Kind   error
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

func Unauthorized(format string, a ...any) error {
	return &Rejection{Kind: ErrUnauthorized, Reason: fmt.Sprintf(format, a...)}
}

func InvalidState(format string, a ...any) error {
	return &Rejection{Kind: ErrInvalidState, Reason: fmt.Sprintf(format, a...)}
}

func Insufficient(format string, a ...any) error {
	return &Rejection{Kind: ErrInsufficientBalance, Reason: fmt.Sprintf(format, a...)}
}

func Invariant(format string, a ...any) error {
	return &Rejection{Kind: ErrInvariant, Reason: fmt.Sprintf(format, a...)}
}
