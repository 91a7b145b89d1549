package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrWrongChain = errors.New("chain: transaction signed for another chain")
	ErrReverted   = errors.New("chain: transaction reverted")

	ErrBadTransaction = errors.New("chain: malformed transaction")
)

// TxBackend is the write slice of an Ethereum client.
type TxBackend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Submission is the externally visible result of a relayed transaction.
type Submission struct {
	Hash        common.Hash `json:"hash"`
	ExplorerURL string      `json:"explorerUrl,omitempty"`
}

// Submitter broadcasts transactions that were already signed by the user's
// wallet. It never holds keys.
type Submitter struct {
	backend  TxBackend
	chainID  uint64
	explorer string
}

func NewSubmitter(backend TxBackend, chainID uint64, explorerBase string) *Submitter {
	return &Submitter{backend: backend, chainID: chainID, explorer: explorerBase}
}

// Relay decodes a raw signed transaction and broadcasts it.
func (s *Submitter) Relay(ctx context.Context, raw []byte) (Submission, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrBadTransaction, err)
	}
	if id := tx.ChainId(); id != nil && id.Sign() > 0 && s.chainID != 0 && id.Uint64() != s.chainID {
		return Submission{}, fmt.Errorf("%w: got %d, want %d", ErrWrongChain, id.Uint64(), s.chainID)
	}
	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		return Submission{}, fmt.Errorf("send transaction: %w", err)
	}
	return Submission{Hash: tx.Hash(), ExplorerURL: ExplorerTxURL(s.explorer, tx.Hash())}, nil
}

// Wait polls for the receipt until it appears or ctx ends.
func (s *Submitter) Wait(ctx context.Context, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, ErrReverted
			}
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// Receipt states reported by Confirm.
const (
	TxPending   = "pending"
	TxConfirmed = "confirmed"
	TxReverted  = "reverted"
)

// Confirmation is the current state of a relayed transaction.
type Confirmation struct {
	Hash        common.Hash `json:"hash"`
	Status      string      `json:"status"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	GasUsed     uint64      `json:"gasUsed,omitempty"`
	ExplorerURL string      `json:"explorerUrl,omitempty"`
}

// Confirm reports whether hash is mined. With wait > 0 it polls until the
// receipt appears or wait elapses; a missing receipt is TxPending, not an
// error.
func (s *Submitter) Confirm(ctx context.Context, hash common.Hash, wait time.Duration) (Confirmation, error) {
	c := Confirmation{Hash: hash, Status: TxPending, ExplorerURL: ExplorerTxURL(s.explorer, hash)}

	var (
		receipt *types.Receipt
		err     error
	)
	if wait > 0 {
		wctx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		receipt, err = s.Wait(wctx, hash, wait/10)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return c, nil
		}
	} else {
		receipt, err = s.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return c, nil
		}
		if err != nil {
			err = fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
	}
	if err != nil && !errors.Is(err, ErrReverted) {
		return Confirmation{}, err
	}

	c.Status = TxConfirmed
	if receipt.Status == types.ReceiptStatusFailed {
		c.Status = TxReverted
	}
	if receipt.BlockNumber != nil {
		c.BlockNumber = receipt.BlockNumber.Uint64()
	}
	c.GasUsed = receipt.GasUsed
	return c, nil
}

// ExplorerTxURL links a transaction hash on a public block explorer.
func ExplorerTxURL(base string, hash common.Hash) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + hash.Hex()
}
