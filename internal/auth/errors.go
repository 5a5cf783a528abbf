package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies authentication failures surfaced by the identity
// provider client.
type ErrorKind string

const (
	MissingAuthorizationCode  ErrorKind = "missing_authorization_code"
	InvalidAuthorizationState ErrorKind = "invalid_authorization_state"
	TokenExchangeFailed       ErrorKind = "token_exchange_failed"
	UserinfoFetchFailed       ErrorKind = "userinfo_fetch_failed"
	SessionEstablishFailed    ErrorKind = "session_establish_failed"
)

// Error is the tagged failure returned by every step of the callback path.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func NewError(kind ErrorKind, msg string, wrapped error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: wrapped}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the ErrorKind from err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Recoverable reports whether the failure is the caller's or the provider's
// doing and belongs in a 400 response rather than a 500.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case MissingAuthorizationCode, InvalidAuthorizationState, TokenExchangeFailed, UserinfoFetchFailed:
		return true
	default:
		return false
	}
}
