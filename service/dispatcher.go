package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/xerial/core"
	"github.com/layer-3/xerial/ports"
	"github.com/sirupsen/logrus"
)

// Dispatcher routes a pre-built transaction to the custodial service or to
// the user's external wallet. The SDK never holds private keys.
type Dispatcher struct {
	api      *API
	session  *Session
	provider ports.WalletProvider
	logger   logrus.FieldLogger
}

// NewDispatcher creates a dispatcher. provider may be nil when no external
// wallet is available.
func NewDispatcher(api *API, session *Session, provider ports.WalletProvider, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		api:      api,
		session:  session,
		provider: provider,
		logger:   logger.WithField("component", "dispatcher"),
	}
}

// SendTransaction submits tx and returns its hash. from is optional; when
// set it must be the session's wallet address or its smart account.
func (d *Dispatcher) SendTransaction(ctx context.Context, tx core.UnsignedTransaction, from string) (string, error) {
	account, err := d.session.ResolveUser(ctx)
	if err != nil {
		return "", err
	}

	if from != "" && !account.Owns(from) {
		return "", core.NewError(core.KindUnauthorized, "Unauthorized", nil)
	}
	// a sender inside the payload is held to the same rule as from
	if tx.From != nil && !account.Owns(tx.From.Hex()) {
		return "", core.NewError(core.KindUnauthorized, "Unauthorized: transaction sender "+tx.From.Hex(), nil)
	}

	logger := d.logger.WithFields(logrus.Fields{
		"identifier": account.Identifier,
		"custodial":  account.Custodial,
	})

	if account.Custodial {
		address := account.Address
		if from != "" {
			address = from
		}
		logger.WithField("address", address).Info("submitting custodial transaction")
		return d.sendCustodial(ctx, address, tx)
	}

	logger.WithField("address", account.Address).Info("submitting transaction to external wallet")
	return d.sendExternal(ctx, account, tx)
}

func (d *Dispatcher) sendCustodial(ctx context.Context, address string, tx core.UnsignedTransaction) (string, error) {
	resp, err := d.api.Do(ctx, http.MethodPost, d.api.WalletURL(address, "transaction"), true, tx)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return "", err
	}

	var body struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := DecodeJSON(resp, &body); err != nil {
		return "", err
	}
	if body.TransactionHash == "" {
		return "", core.NewError(core.KindDecode, "response has no transactionHash", nil)
	}
	return body.TransactionHash, nil
}

func (d *Dispatcher) sendExternal(ctx context.Context, account *core.Account, tx core.UnsignedTransaction) (string, error) {
	if d.provider == nil {
		return "", core.NewError(core.KindExternalWalletMissing, "wallet not installed", nil)
	}

	accounts, err := d.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", core.NewError(core.KindExternalWalletMismatch, "wallet exposed no accounts", nil)
	}

	signer := accounts[0]
	if !strings.EqualFold(signer.Hex(), account.Address) {
		return "", core.NewError(core.KindExternalWalletMismatch, "incorrect account: wallet signs as "+signer.Hex(), nil)
	}

	if tx.From == nil {
		tx = tx.WithFrom(signer)
	} else if *tx.From != signer {
		return "", core.NewError(core.KindExternalWalletMismatch, "incorrect account: transaction sender is "+tx.From.Hex(), nil)
	}

	hash, err := d.provider.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	receipt, err := d.provider.WaitMined(ctx, hash)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		d.logger.WithField("hash", hash.Hex()).Warn("transaction mined but reverted")
	}

	return hash.Hex(), nil
}
