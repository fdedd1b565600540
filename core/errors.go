package core

import "fmt"

// Kind classifies SDK errors. The set is closed.
type Kind string

const (
	KindAuthFailed             Kind = "AUTH_FAILED"
	KindNotAuthenticated       Kind = "NOT_AUTHENTICATED"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindUnsupportedChain       Kind = "UNSUPPORTED_CHAIN"
	KindExternalWalletMissing  Kind = "EXTERNAL_WALLET_MISSING"
	KindExternalWalletMismatch Kind = "EXTERNAL_WALLET_MISMATCH"
	KindNetwork                Kind = "NETWORK_ERROR"
	KindDecode                 Kind = "DECODE_ERROR"
	KindInvalidConfig          Kind = "INVALID_CONFIG"
)

var (
	ErrAuthFailed             = &Error{Kind: KindAuthFailed, Message: "Auth Failed"}
	ErrNotAuthenticated       = &Error{Kind: KindNotAuthenticated, Message: "Not Authenticated"}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrUnsupportedChain       = &Error{Kind: KindUnsupportedChain, Message: "Not supported chain"}
	ErrExternalWalletMissing  = &Error{Kind: KindExternalWalletMissing, Message: "wallet not installed"}
	ErrExternalWalletMismatch = &Error{Kind: KindExternalWalletMismatch, Message: "incorrect account"}
	ErrNetwork                = &Error{Kind: KindNetwork, Message: "network error"}
	ErrDecode                 = &Error{Kind: KindDecode, Message: "decode error"}
	ErrInvalidConfig          = &Error{Kind: KindInvalidConfig, Message: "invalid config"}
)

// Error is the error type returned by every SDK operation
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code when the error came from a response
	Status int
	Cause  error
}

// NewError creates an error of the given kind
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// StatusError creates an error carrying the HTTP status that produced it
func StatusError(kind Kind, status int, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Status:  status,
	}
}

// Error formats kind, message, status and cause
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrAuthFailed) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
