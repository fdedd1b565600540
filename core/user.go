package core

import (
	"fmt"
	"strings"
)

// Wallet is one wallet attached to a user, as returned by the user endpoint
type Wallet struct {
	Address      string `json:"address"`
	SmartAccount string `json:"smartAccount,omitempty"`
	Custodial    bool   `json:"custodial"`
}

// User is the authenticated identity returned by GET /user
type User struct {
	Identifier string   `json:"identifier"`
	Name       string   `json:"name,omitempty"`
	Wallets    []Wallet `json:"wallets"`
}

// Validate rejects payloads the SDK cannot derive an account from
func (u User) Validate() error {
	if u.Identifier == "" {
		return fmt.Errorf("user identifier is empty")
	}
	if len(u.Wallets) == 0 {
		return fmt.Errorf("user %s has no wallets", u.Identifier)
	}
	if u.Wallets[0].Address == "" {
		return fmt.Errorf("primary wallet of user %s has no address", u.Identifier)
	}
	return nil
}

// Primary returns the first wallet, which the SDK treats as the user's wallet
func (u User) Primary() Wallet {
	return u.Wallets[0]
}

// Account is the cached session identity: the user plus its active address
type Account struct {
	Identifier    string
	Name          string
	Address       string // active address
	WalletAddress string
	SmartAccount  string
	Custodial     bool
}

// ResolveAccount derives the active address for a user on a chain.
// Custodial wallets on polygon act through their smart account; everything
// else uses the plain wallet address.
func ResolveAccount(u User, chain Chain) Account {
	w := u.Primary()

	address := w.Address
	if w.Custodial && chain == ChainPolygon && w.SmartAccount != "" {
		address = w.SmartAccount
	}

	return Account{
		Identifier:    u.Identifier,
		Name:          u.Name,
		Address:       address,
		WalletAddress: w.Address,
		SmartAccount:  w.SmartAccount,
		Custodial:     w.Custodial,
	}
}

// Owns reports whether addr is the account's wallet address or smart account
func (a Account) Owns(addr string) bool {
	if addr == "" {
		return false
	}
	return strings.EqualFold(addr, a.WalletAddress) ||
		(a.SmartAccount != "" && strings.EqualFold(addr, a.SmartAccount))
}
