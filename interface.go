package xerial

import (
	"context"
	"encoding/json"

	"github.com/layer-3/xerial/core"
	"github.com/shopspring/decimal"
)

type (
	Config              = core.Config
	Chain               = core.Chain
	Account             = core.Account
	User                = core.User
	Wallet              = core.Wallet
	UnsignedTransaction = core.UnsignedTransaction
)

const (
	ChainPolygon = core.ChainPolygon
	ChainTelos   = core.ChainTelos
)

// Client represents the public interface of the wallet SDK
type Client interface {
	// Authenticate logs the user in, refreshing silently when possible, and
	// returns the resolved account
	Authenticate(ctx context.Context) (*Account, error)

	// IsAuthenticated reports whether a non-expired access token is stored
	IsAuthenticated(ctx context.Context) bool

	// Logout terminates the session on the server and drops local credentials
	Logout(ctx context.Context) error

	// User returns the session account, resolving it on first use
	User(ctx context.Context) (*Account, error)

	// Tokens returns the token balances of the active address
	Tokens(ctx context.Context) (json.RawMessage, error)

	// NativeBalance returns the native coin balance of the active address
	NativeBalance(ctx context.Context) (decimal.Decimal, error)

	// Inventory returns the global inventory of the active address (polygon only)
	Inventory(ctx context.Context) (json.RawMessage, error)

	// SendTransaction submits a pre-built transaction and returns its hash
	SendTransaction(ctx context.Context, tx UnsignedTransaction, from string) (string, error)
}
