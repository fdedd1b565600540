package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UnsignedTransaction is a pre-built transaction forwarded verbatim either to
// the custodial service or to an external wallet provider. Field names follow
// the JSON shape wallets accept for eth_sendTransaction.
type UnsignedTransaction struct {
	From                 *common.Address `json:"from,omitempty"`
	To                   *common.Address `json:"to,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	GasLimit             *hexutil.Uint64 `json:"gasLimit,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
	Type                 *hexutil.Uint64 `json:"type,omitempty"`
}

// WithFrom returns a copy of the transaction with the sender set
func (tx UnsignedTransaction) WithFrom(from common.Address) UnsignedTransaction {
	tx.From = &from
	return tx
}
