package chain_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/bst-governance/src/chain"
)

type fakeBackend struct {
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	polls    int
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	f.polls++
	if r, ok := f.receipts[h]; ok && f.polls > 1 {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func signedTx(t *testing.T, chainID int64) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x3000000000000000000000000000000000000003")
	tx := types.MustSignNewTx(key, types.LatestSignerForChainID(big.NewInt(chainID)), &types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     1,
		GasTipCap: big.NewInt(1e9),
		GasFeeCap: big.NewInt(2e9),
		Gas:       120000,
		To:        &to,
		Value:     new(big.Int),
		Data:      []byte{0x56, 0x78, 0x1a, 0x88},
	})
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestRelay(t *testing.T) {
	be := &fakeBackend{receipts: map[common.Hash]*types.Receipt{}}
	s := chain.NewSubmitter(be, 11155111, "https://sepolia.etherscan.io/")

	sub, err := s.Relay(context.Background(), signedTx(t, 11155111))
	require.NoError(t, err)
	require.Len(t, be.sent, 1)
	assert.Equal(t, be.sent[0].Hash(), sub.Hash)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+sub.Hash.Hex(), sub.ExplorerURL)

	_, err = s.Relay(context.Background(), signedTx(t, 1))
	assert.ErrorIs(t, err, chain.ErrWrongChain)

	_, err = s.Relay(context.Background(), []byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestWait(t *testing.T) {
	be := &fakeBackend{receipts: map[common.Hash]*types.Receipt{}}
	s := chain.NewSubmitter(be, 1, "")
	h := common.HexToHash("0xabc")
	be.receipts[h] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	r, err := s.Wait(context.Background(), h, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, r.Status)

	be.polls = 0
	be.receipts[h] = &types.Receipt{Status: types.ReceiptStatusFailed}
	_, err = s.Wait(context.Background(), h, time.Millisecond)
	assert.ErrorIs(t, err, chain.ErrReverted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Wait(ctx, common.HexToHash("0xdef"), time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfirm(t *testing.T) {
	be := &fakeBackend{receipts: map[common.Hash]*types.Receipt{}}
	s := chain.NewSubmitter(be, 1, "https://etherscan.io")
	h := common.HexToHash("0xabc")
	be.receipts[h] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42), GasUsed: 21000}

	c, err := s.Confirm(context.Background(), h, 0)
	require.NoError(t, err)
	assert.Equal(t, chain.TxPending, c.Status)
	assert.Equal(t, "https://etherscan.io/tx/"+h.Hex(), c.ExplorerURL)

	c, err = s.Confirm(context.Background(), h, 0)
	require.NoError(t, err)
	assert.Equal(t, chain.TxConfirmed, c.Status)
	assert.EqualValues(t, 42, c.BlockNumber)
	assert.EqualValues(t, 21000, c.GasUsed)
}

func TestConfirmReverted(t *testing.T) {
	be := &fakeBackend{receipts: map[common.Hash]*types.Receipt{}}
	s := chain.NewSubmitter(be, 1, "")
	h := common.HexToHash("0xabc")
	be.receipts[h] = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(7)}

	c, err := s.Confirm(context.Background(), h, time.Second)
	require.NoError(t, err)
	assert.Equal(t, chain.TxReverted, c.Status)
	assert.EqualValues(t, 7, c.BlockNumber)
}

func TestConfirmWaitTimesOutAsPending(t *testing.T) {
	be := &fakeBackend{receipts: map[common.Hash]*types.Receipt{}}
	s := chain.NewSubmitter(be, 1, "")

	c, err := s.Confirm(context.Background(), common.HexToHash("0xdef"), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, chain.TxPending, c.Status)
	assert.Greater(t, be.polls, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Confirm(ctx, common.HexToHash("0xdef"), 20*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExplorerTxURL(t *testing.T) {
	assert.Empty(t, chain.ExplorerTxURL("", common.Hash{}))
}
