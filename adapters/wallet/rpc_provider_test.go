package wallet

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/xerial/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	walletAccount = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	sentHash      = common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
)

// fakeWallet answers the eth namespace like an extension wallet would
type fakeWallet struct {
	received     atomic.Pointer[core.UnsignedTransaction]
	receiptPolls atomic.Int32
	pendingPolls int32
}

func (w *fakeWallet) RequestAccounts() ([]common.Address, error) {
	return []common.Address{walletAccount}, nil
}

func (w *fakeWallet) SendTransaction(tx core.UnsignedTransaction) (common.Hash, error) {
	w.received.Store(&tx)
	return sentHash, nil
}

func (w *fakeWallet) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	if w.receiptPolls.Add(1) <= w.pendingPolls {
		return nil, nil
	}
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		Logs:              []*types.Log{},
		TxHash:            hash,
	}, nil
}

func newTestProvider(t *testing.T, w *fakeWallet) *RPCProvider {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", w))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})

	p, err := Dial(context.Background(), ts.URL, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestRequestAccounts(t *testing.T) {
	p := newTestProvider(t, &fakeWallet{})

	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{walletAccount}, accounts)
}

func TestSendTransactionForwardsPayload(t *testing.T) {
	w := &fakeWallet{}
	p := newTestProvider(t, w)

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := core.UnsignedTransaction{
		To:    &to,
		Value: (*hexutil.Big)(hexutil.MustDecodeBig("0x10")),
		Data:  hexutil.MustDecode("0xdeadbeef"),
	}.WithFrom(walletAccount)

	hash, err := p.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, sentHash, hash)

	got := w.received.Load()
	require.NotNil(t, got)
	assert.Equal(t, to, *got.To)
	assert.Equal(t, walletAccount, *got.From)
	assert.Equal(t, hexutil.Bytes{0xde, 0xad, 0xbe, 0xef}, got.Data)
}

func TestWaitMinedPollsUntilReceipt(t *testing.T) {
	w := &fakeWallet{pendingPolls: 2}
	p := newTestProvider(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receipt, err := p.WaitMined(ctx, sentHash)
	require.NoError(t, err)
	assert.Equal(t, sentHash, receipt.TxHash)
	assert.Equal(t, int32(3), w.receiptPolls.Load())
}

func TestWaitMinedStopsOnContext(t *testing.T) {
	w := &fakeWallet{pendingPolls: 1 << 30}
	p := newTestProvider(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.WaitMined(ctx, sentHash)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
