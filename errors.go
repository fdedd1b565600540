package xerial

import (
	"github.com/layer-3/xerial/core"
)

// Error is the error type returned by every SDK operation; match it with
// errors.Is against the sentinels below or errors.As to read Kind and Status.
type Error = core.Error

var (
	// ErrAuthFailed is returned when a login or refresh attempt fails
	ErrAuthFailed = core.ErrAuthFailed

	// ErrNotAuthenticated is returned when the service rejects the access token
	ErrNotAuthenticated = core.ErrNotAuthenticated

	// ErrUnauthorized is returned when a transaction names a sender the user does not own
	ErrUnauthorized = core.ErrUnauthorized

	// ErrUnsupportedChain is returned when an operation is not available on the configured chain
	ErrUnsupportedChain = core.ErrUnsupportedChain

	// ErrExternalWalletMissing is returned when a non-custodial user has no wallet provider
	ErrExternalWalletMissing = core.ErrExternalWalletMissing

	// ErrExternalWalletMismatch is returned when the wallet provider signs as another account
	ErrExternalWalletMismatch = core.ErrExternalWalletMismatch

	// ErrNetwork is returned on transport failures and unexpected statuses
	ErrNetwork = core.ErrNetwork

	// ErrDecode is returned when a response body cannot be decoded
	ErrDecode = core.ErrDecode

	// ErrInvalidConfig is returned by New for an unusable config
	ErrInvalidConfig = core.ErrInvalidConfig
)
