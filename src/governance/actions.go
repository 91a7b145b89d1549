package governance

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/session"
)

// Delegate builds token.delegate. An empty delegatee means the caller,
// which activates the voting power of tokens already held.
func (b *Builder) Delegate(s session.WalletSession, delegatee string) (chain.TxRequest, error) {
	if !b.chain.Token.Configured() {
		return chain.TxRequest{}, ErrNotConfigured
	}
	self, ok := s.Account()
	if !ok {
		return chain.TxRequest{}, ErrNotConnected
	}
	to := self
	if strings.TrimSpace(delegatee) != "" {
		addr, err := gov.ParseAddress(delegatee)
		if err != nil {
			return chain.TxRequest{}, invalid("invalid delegatee address")
		}
		to = addr
	}
	return b.chain.Token.Delegate(to)
}

// ExecutionRequest identifies a proposal by the tuple it was created with.
type ExecutionRequest struct {
	Targets     []string `json:"targets"`
	Values      []string `json:"values"`
	Calldatas   []string `json:"calldatas"`
	Description string   `json:"description"`
}

func (r ExecutionRequest) action() (chain.Action, error) {
	n := len(r.Targets)
	if n == 0 || len(r.Values) != n || len(r.Calldatas) != n {
		return chain.Action{}, invalid("targets, values and calldatas must have the same non-zero length")
	}
	if r.Description == "" {
		return chain.Action{}, invalid("description is required")
	}
	a := chain.Action{
		Targets:   make([]common.Address, n),
		Values:    make([]*big.Int, n),
		Calldatas: make([][]byte, n),
	}
	for i := 0; i < n; i++ {
		addr, err := gov.ParseAddress(r.Targets[i])
		if err != nil {
			return chain.Action{}, invalid("target %d: %v", i, err)
		}
		v, ok := new(big.Int).SetString(r.Values[i], 10)
		if !ok || v.Sign() < 0 {
			return chain.Action{}, invalid("value %d must be a non-negative integer in wei", i)
		}
		data := []byte{}
		if r.Calldatas[i] != "" && r.Calldatas[i] != "0x" {
			if data, err = hexutil.Decode(r.Calldatas[i]); err != nil {
				return chain.Action{}, invalid("calldata %d: %v", i, err)
			}
		}
		a.Targets[i], a.Values[i], a.Calldatas[i] = addr, v, data
	}
	return a, nil
}

// Queue builds governor.queue for a Succeeded proposal.
func (b *Builder) Queue(s session.WalletSession, state gov.ProposalState, req ExecutionRequest) (chain.TxRequest, error) {
	if !b.chain.Governor.Configured() {
		return chain.TxRequest{}, ErrNotConfigured
	}
	if err := requireConnected(s); err != nil {
		return chain.TxRequest{}, err
	}
	if state != gov.StateSucceeded {
		return chain.TxRequest{}, ErrWrongState
	}
	a, err := req.action()
	if err != nil {
		return chain.TxRequest{}, err
	}
	return b.chain.Governor.Queue(a, req.Description)
}

// Execute builds governor.execute for a Queued proposal, or a Succeeded
// one on governors without a timelock. The call value is the sum of the
// action values.
func (b *Builder) Execute(s session.WalletSession, state gov.ProposalState, req ExecutionRequest) (chain.TxRequest, error) {
	if !b.chain.Governor.Configured() {
		return chain.TxRequest{}, ErrNotConfigured
	}
	if err := requireConnected(s); err != nil {
		return chain.TxRequest{}, err
	}
	if state != gov.StateQueued && state != gov.StateSucceeded {
		return chain.TxRequest{}, ErrWrongState
	}
	a, err := req.action()
	if err != nil {
		return chain.TxRequest{}, err
	}
	total := new(big.Int)
	for _, v := range a.Values {
		total.Add(total, v)
	}
	return b.chain.Governor.Execute(a, req.Description, total)
}

// Mint builds a payable mint of the membership NFT at price. With a tier
// it uses mintWithTier.
func (b *Builder) Mint(s session.WalletSession, price *big.Int, soldOut bool, tier *gov.Tier) (chain.TxRequest, error) {
	if !b.chain.Membership.Configured() {
		return chain.TxRequest{}, ErrNotConfigured
	}
	if err := requireConnected(s); err != nil {
		return chain.TxRequest{}, err
	}
	if soldOut {
		return chain.TxRequest{}, ErrSoldOut
	}
	if price == nil || price.Sign() < 0 {
		return chain.TxRequest{}, invalid("mint price unavailable")
	}
	if tier != nil {
		if !tier.Valid() {
			return chain.TxRequest{}, invalid("unknown tier %d", *tier)
		}
		return b.chain.Membership.MintWithTier(uint8(*tier), price)
	}
	return b.chain.Membership.Mint(price)
}
