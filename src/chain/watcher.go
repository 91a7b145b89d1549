package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// LogSource is the log-filtering slice of an Ethereum client.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type EventKind string

const (
	EventProposalCreated  EventKind = "ProposalCreated"
	EventVoteCast         EventKind = "VoteCast"
	EventProposalExecuted EventKind = "ProposalExecuted"
	EventDelegateChanged  EventKind = "DelegateChanged"
)

// Event is a decoded governance log.
type Event struct {
	Kind       EventKind      `json:"kind"`
	ProposalID *big.Int       `json:"proposalId,omitempty"`
	Account    common.Address `json:"account"`
	Block      uint64         `json:"block"`
	TxHash     common.Hash    `json:"txHash"`
}

const maxBlockRange = 5000

// Watcher polls governor and token logs and hands decoded events to a
// handler. It starts at the current head; history is not replayed.
type Watcher struct {
	src      LogSource
	governor *common.Address
	token    *common.Address
	interval time.Duration
	handler  func(Event)
	next     uint64
	log      *logrus.Entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(src LogSource, governor, token *common.Address, interval time.Duration, handler func(Event)) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		src:      src,
		governor: governor,
		token:    token,
		interval: interval,
		handler:  handler,
		log:      logrus.WithField("component", "chain-watcher"),
	}
}

func (w *Watcher) Name() string { return "chain-watcher" }

func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

func (w *Watcher) Stop(context.Context) {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		if err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Warn("poll failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Poll fetches logs from the last seen block up to the current head.
func (w *Watcher) Poll(ctx context.Context) error {
	var addrs []common.Address
	if w.governor != nil {
		addrs = append(addrs, *w.governor)
	}
	if w.token != nil {
		addrs = append(addrs, *w.token)
	}
	if len(addrs) == 0 {
		return nil
	}

	head, err := w.src.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if w.next == 0 {
		w.next = head
	}
	if head < w.next {
		return nil
	}
	to := head
	if to-w.next >= maxBlockRange {
		to = w.next + maxBlockRange - 1
	}

	logs, err := w.src.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.next),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addrs,
		Topics:    [][]common.Hash{watchedTopics()},
	})
	if err != nil {
		return err
	}
	for _, l := range logs {
		if ev, ok := DecodeEvent(l); ok && w.handler != nil {
			w.handler(ev)
		}
	}
	w.next = to + 1
	return nil
}

func watchedTopics() []common.Hash {
	return []common.Hash{
		GovernorABI.Events["ProposalCreated"].ID,
		GovernorABI.Events["VoteCast"].ID,
		GovernorABI.Events["ProposalExecuted"].ID,
		TokenABI.Events["DelegateChanged"].ID,
	}
}

// DecodeEvent turns a raw log into an Event. Unknown or malformed logs are
// skipped.
func DecodeEvent(l types.Log) (Event, bool) {
	if len(l.Topics) == 0 {
		return Event{}, false
	}
	ev := Event{Block: l.BlockNumber, TxHash: l.TxHash}
	switch l.Topics[0] {
	case GovernorABI.Events["ProposalCreated"].ID:
		vals, err := unpackEvent(GovernorABI, "ProposalCreated", l.Data)
		if err != nil || len(vals) < 2 {
			return Event{}, false
		}
		ev.Kind = EventProposalCreated
		ev.ProposalID, _ = vals[0].(*big.Int)
		ev.Account, _ = vals[1].(common.Address)
	case GovernorABI.Events["VoteCast"].ID:
		if len(l.Topics) < 2 {
			return Event{}, false
		}
		vals, err := unpackEvent(GovernorABI, "VoteCast", l.Data)
		if err != nil || len(vals) < 1 {
			return Event{}, false
		}
		ev.Kind = EventVoteCast
		ev.ProposalID, _ = vals[0].(*big.Int)
		ev.Account = common.BytesToAddress(l.Topics[1].Bytes())
	case GovernorABI.Events["ProposalExecuted"].ID:
		vals, err := unpackEvent(GovernorABI, "ProposalExecuted", l.Data)
		if err != nil || len(vals) < 1 {
			return Event{}, false
		}
		ev.Kind = EventProposalExecuted
		ev.ProposalID, _ = vals[0].(*big.Int)
	case TokenABI.Events["DelegateChanged"].ID:
		if len(l.Topics) < 2 {
			return Event{}, false
		}
		ev.Kind = EventDelegateChanged
		ev.Account = common.BytesToAddress(l.Topics[1].Bytes())
	default:
		return Event{}, false
	}
	return ev, true
}

func unpackEvent(a abi.ABI, name string, data []byte) ([]interface{}, error) {
	return a.Unpack(name, data)
}
