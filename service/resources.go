package service

import (
	"context"
	"encoding/json"

	"github.com/layer-3/xerial/core"
	"github.com/shopspring/decimal"
)

// Resources reads balances and inventory for the session's active address
// or an explicit one. Every call is a single request; errors are returned
// unchanged.
type Resources struct {
	api     *API
	session *Session
	chain   core.Chain
}

// NewResources creates the resource client
func NewResources(cfg core.Config, api *API, session *Session) *Resources {
	return &Resources{
		api:     api,
		session: session,
		chain:   cfg.Chain,
	}
}

// Tokens returns the token balances of the active address
func (r *Resources) Tokens(ctx context.Context) (json.RawMessage, error) {
	account, err := r.session.ResolveUser(ctx)
	if err != nil {
		return nil, err
	}
	return r.TokensAt(ctx, account.Address)
}

// TokensAt returns the token balances of address
func (r *Resources) TokensAt(ctx context.Context, address string) (json.RawMessage, error) {
	var body struct {
		Balances json.RawMessage `json:"balances"`
	}
	if err := r.api.GetJSON(ctx, r.api.WalletURL(address, "tokens"), &body); err != nil {
		return nil, err
	}
	return body.Balances, nil
}

// NativeBalance returns the native coin balance of the active address
func (r *Resources) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	account, err := r.session.ResolveUser(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return r.NativeBalanceAt(ctx, account.Address)
}

// NativeBalanceAt returns the native coin balance of address
func (r *Resources) NativeBalanceAt(ctx context.Context, address string) (decimal.Decimal, error) {
	var body struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := r.api.GetJSON(ctx, r.api.WalletURL(address, "eth"), &body); err != nil {
		return decimal.Zero, err
	}
	return body.Balance, nil
}

// Inventory returns the global inventory of the active address. Only polygon
// has an inventory; other chains fail before any request is made.
func (r *Resources) Inventory(ctx context.Context) (json.RawMessage, error) {
	if err := r.requireInventory(); err != nil {
		return nil, err
	}
	account, err := r.session.ResolveUser(ctx)
	if err != nil {
		return nil, err
	}
	return r.InventoryAt(ctx, account.Address)
}

// InventoryAt returns the global inventory of address
func (r *Resources) InventoryAt(ctx context.Context, address string) (json.RawMessage, error) {
	if err := r.requireInventory(); err != nil {
		return nil, err
	}

	var body json.RawMessage
	if err := r.api.GetJSON(ctx, r.api.WalletURL(address, "global-inventory"), &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (r *Resources) requireInventory() error {
	if r.chain != core.ChainPolygon {
		return core.NewError(core.KindUnsupportedChain, "Not supported chain: "+string(r.chain), nil)
	}
	return nil
}
