package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
)

const defaultPollInterval = 2 * time.Second

// RPCProvider is an external wallet reached over JSON-RPC. It speaks the
// EIP-1193 method set a browser extension exposes: eth_requestAccounts and
// eth_sendTransaction are answered by the wallet, which keeps the keys.
type RPCProvider struct {
	rpc          *rpc.Client
	eth          *ethclient.Client
	pollInterval time.Duration
}

// Option configures an RPCProvider
type Option func(*RPCProvider)

// WithPollInterval sets how often WaitMined polls for a receipt
func WithPollInterval(d time.Duration) Option {
	return func(p *RPCProvider) {
		p.pollInterval = d
	}
}

// Dial connects to a wallet endpoint
func Dial(ctx context.Context, url string, opts ...Option) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet %s: %w", url, err)
	}
	return NewRPCProvider(client, opts...), nil
}

// NewRPCProvider wraps an existing RPC client
func NewRPCProvider(client *rpc.Client, opts ...Option) *RPCProvider {
	p := &RPCProvider{
		rpc:          client,
		eth:          ethclient.NewClient(client),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestAccounts asks the wallet for account access
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.rpc.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, fmt.Errorf("eth_requestAccounts failed: %w", err)
	}
	return accounts, nil
}

// SendTransaction asks the wallet to sign and broadcast tx
func (p *RPCProvider) SendTransaction(ctx context.Context, tx core.UnsignedTransaction) (common.Hash, error) {
	var hash common.Hash
	if err := p.rpc.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction failed: %w", err)
	}
	return hash, nil
}

// WaitMined polls for the receipt of hash until it is available or ctx ends
func (p *RPCProvider) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the underlying connection
func (p *RPCProvider) Close() {
	p.rpc.Close()
}

var _ ports.WalletProvider = (*RPCProvider)(nil)
