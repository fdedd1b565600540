package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/xerial/core"
)

// WalletProvider is an external signer controlled by the end user
type WalletProvider interface {
	// RequestAccounts asks the user for account access and returns the
	// provider's accounts, active signing account first
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// SendTransaction hands the transaction to the provider for signing and broadcast
	SendTransaction(ctx context.Context, tx core.UnsignedTransaction) (common.Hash, error)

	// WaitMined blocks until the transaction is included on chain
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
