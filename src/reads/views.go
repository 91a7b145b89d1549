package reads

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/gov"
)

// collector folds the parts of a composite read into one snapshot status.
type collector struct {
	err       error
	fetchedAt time.Time
}

func (c *collector) add(fetched time.Time, err error) bool {
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return false
	}
	if c.fetchedAt.IsZero() || fetched.Before(c.fetchedAt) {
		c.fetchedAt = fetched
	}
	return true
}

// finish builds the snapshot; a cancelled read is returned as an error so
// the caller drops the result.
func finish[T any](c *collector, v T) (Snapshot[T], error) {
	if c.err != nil {
		if IsCancelled(c.err) {
			return Snapshot[T]{}, c.err
		}
		var zero T
		return Snapshot[T]{Value: zero, Status: StatusUnavailable}, nil
	}
	return Snapshot[T]{Value: v, Status: StatusReady, FetchedAt: c.fetchedAt}, nil
}

func unconfigured[T any]() Snapshot[T] { return Snapshot[T]{Status: StatusUnconfigured} }

// Membership reads the NFT balance and tier of owner.
func (s *Service) Membership(ctx context.Context, owner common.Address) (Snapshot[gov.MembershipRecord], error) {
	m := s.chain.Membership
	if !m.Configured() {
		return unconfigured[gov.MembershipRecord](), nil
	}
	scope := accountScope(owner)
	var c collector

	balance, at, err := read(ctx, s, scope, "nft.balanceOf", []interface{}{owner}, func(ctx context.Context) (*big.Int, error) {
		return m.BalanceOf(ctx, owner)
	})
	if !c.add(at, err) {
		return finish(&c, gov.MembershipRecord{})
	}

	var tierRaw *uint8
	if balance.Sign() > 0 {
		t, at, err := read(ctx, s, scope, "nft.membershipTier", []interface{}{owner}, func(ctx context.Context) (uint8, error) {
			return m.MembershipTier(ctx, owner)
		})
		if !c.add(at, err) {
			return finish(&c, gov.MembershipRecord{})
		}
		tierRaw = &t
	}

	rec, err := gov.DeriveMembership(owner, balance, tierRaw)
	if err != nil {
		s.log.WithError(err).WithField("owner", owner.Hex()).Warn("membership derivation failed")
		return Snapshot[gov.MembershipRecord]{Status: StatusUnavailable}, nil
	}
	return finish(&c, rec)
}

// VotingPower reads balance, delegate and active votes of owner.
func (s *Service) VotingPower(ctx context.Context, owner common.Address) (Snapshot[gov.VotingPower], error) {
	t := s.chain.Token
	if !t.Configured() {
		return unconfigured[gov.VotingPower](), nil
	}
	scope := accountScope(owner)
	var c collector

	balance, at, err := read(ctx, s, scope, "token.balanceOf", []interface{}{owner}, func(ctx context.Context) (*big.Int, error) {
		return t.BalanceOf(ctx, owner)
	})
	c.add(at, err)
	delegate, at, err := read(ctx, s, scope, "token.delegates", []interface{}{owner}, func(ctx context.Context) (common.Address, error) {
		return t.Delegates(ctx, owner)
	})
	c.add(at, err)
	votes, at, err := read(ctx, s, scope, "token.getVotes", []interface{}{owner}, func(ctx context.Context) (*big.Int, error) {
		return t.GetVotes(ctx, owner)
	})
	c.add(at, err)
	if c.err != nil {
		return finish(&c, gov.VotingPower{})
	}
	return finish(&c, gov.DeriveVotingPower(balance, &delegate, votes))
}

// TokenInfo describes the governance token.
type TokenInfo struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Decimals    uint8      `json:"decimals"`
	TotalSupply gov.Amount `json:"totalSupply"`
}

// GovernanceInfo is the governor-wide state shown on the governance page.
type GovernanceInfo struct {
	Configured        bool            `json:"isConfigured"`
	Governor          *common.Address `json:"governor,omitempty"`
	Token             *common.Address `json:"token,omitempty"`
	ProposalThreshold gov.Amount      `json:"proposalThreshold"`
	TokenInfo         TokenInfo       `json:"tokenInfo"`
}

// GovernanceConfigured mirrors the frontend rule: both the governor and
// the voting token must be deployed.
func (s *Service) GovernanceConfigured() bool {
	return s.chain.Governor.Configured() && s.chain.Token.Configured()
}

func (s *Service) Governance(ctx context.Context) (Snapshot[GovernanceInfo], error) {
	if !s.GovernanceConfigured() {
		return Snapshot[GovernanceInfo]{
			Value:  GovernanceInfo{Governor: s.chain.Governor.Address(), Token: s.chain.Token.Address()},
			Status: StatusUnconfigured,
		}, nil
	}
	g, t := s.chain.Governor, s.chain.Token
	var c collector

	threshold, at, err := read(ctx, s, scopeGlobal, "proposalThreshold", nil, g.ProposalThreshold)
	c.add(at, err)
	ti, err := s.tokenInfo(ctx, &c)
	if err != nil {
		return Snapshot[GovernanceInfo]{}, err
	}
	if c.err != nil {
		return finish(&c, GovernanceInfo{})
	}
	return finish(&c, GovernanceInfo{
		Configured:        true,
		Governor:          g.Address(),
		Token:             t.Address(),
		ProposalThreshold: gov.NewAmount(threshold, ti.Decimals),
		TokenInfo:         ti,
	})
}

func (s *Service) tokenInfo(ctx context.Context, c *collector) (TokenInfo, error) {
	t := s.chain.Token
	name, at, err := read(ctx, s, scopeGlobal, "token.name", nil, t.Name)
	c.add(at, err)
	symbol, at, err := read(ctx, s, scopeGlobal, "token.symbol", nil, t.Symbol)
	c.add(at, err)
	decimals, at, err := read(ctx, s, scopeGlobal, "token.decimals", nil, t.Decimals)
	c.add(at, err)
	supply, at, err := read(ctx, s, scopeGlobal, "token.totalSupply", nil, t.TotalSupply)
	c.add(at, err)
	if c.err != nil && IsCancelled(c.err) {
		return TokenInfo{}, c.err
	}
	return TokenInfo{Name: name, Symbol: symbol, Decimals: decimals, TotalSupply: gov.NewAmount(supply, decimals)}, nil
}

// ProposalThreshold returns the raw threshold for the proposal gate.
func (s *Service) ProposalThreshold(ctx context.Context) (Snapshot[*big.Int], error) {
	g := s.chain.Governor
	if !g.Configured() {
		return unconfigured[*big.Int](), nil
	}
	var c collector
	threshold, at, err := read(ctx, s, scopeGlobal, "proposalThreshold", nil, g.ProposalThreshold)
	c.add(at, err)
	return finish(&c, threshold)
}

// ProposalDetail is a proposal plus the quorum at its snapshot block.
type ProposalDetail struct {
	gov.Proposal
	Quorum *big.Int `json:"quorum"`
}

// Proposal reads the governor's view of id. hasVoted is read for voter
// when given.
func (s *Service) Proposal(ctx context.Context, id *big.Int, voter *common.Address) (Snapshot[ProposalDetail], error) {
	g := s.chain.Governor
	if !g.Configured() {
		return unconfigured[ProposalDetail](), nil
	}
	scope := proposalScope(id)
	var c collector

	state, at, err := read(ctx, s, scope, "state", nil, func(ctx context.Context) (uint8, error) { return g.State(ctx, id) })
	c.add(at, err)
	votes, at, err := read(ctx, s, scope, "proposalVotes", nil, func(ctx context.Context) (chain.Votes, error) {
		return g.ProposalVotes(ctx, id)
	})
	c.add(at, err)
	deadline, at, err := read(ctx, s, scope, "proposalDeadline", nil, func(ctx context.Context) (*big.Int, error) {
		return g.ProposalDeadline(ctx, id)
	})
	c.add(at, err)
	snapshot, at, err := read(ctx, s, scope, "proposalSnapshot", nil, func(ctx context.Context) (*big.Int, error) {
		return g.ProposalSnapshot(ctx, id)
	})
	c.add(at, err)
	var hasVoted bool
	if voter != nil {
		v := *voter
		hasVoted, at, err = read(ctx, s, scope, "hasVoted", []interface{}{v}, func(ctx context.Context) (bool, error) {
			return g.HasVoted(ctx, id, v)
		})
		c.add(at, err)
	}
	if c.err != nil {
		return finish(&c, ProposalDetail{})
	}
	quorum, at, err := read(ctx, s, scope, "quorum", []interface{}{snapshot}, func(ctx context.Context) (*big.Int, error) {
		return g.Quorum(ctx, snapshot)
	})
	c.add(at, err)
	if c.err != nil {
		return finish(&c, ProposalDetail{})
	}

	return finish(&c, ProposalDetail{
		Proposal: gov.Proposal{
			ID:       new(big.Int).Set(id),
			State:    gov.ProposalState(state),
			For:      votes.For,
			Against:  votes.Against,
			Abstain:  votes.Abstain,
			Deadline: deadline.Uint64(),
			Snapshot: snapshot.Uint64(),
			HasVoted: hasVoted,
		},
		Quorum: quorum,
	})
}

// Collection is the membership NFT sale state.
type Collection struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	TotalSupply *big.Int   `json:"totalSupply"`
	MaxSupply   *big.Int   `json:"maxSupply"`
	Remaining   *big.Int   `json:"remaining"`
	SoldOut     bool       `json:"soldOut"`
	MintPrice   gov.Amount `json:"mintPrice"`
}

func (s *Service) Collection(ctx context.Context) (Snapshot[Collection], error) {
	m := s.chain.Membership
	if !m.Configured() {
		return unconfigured[Collection](), nil
	}
	var c collector
	name, at, err := read(ctx, s, scopeGlobal, "nft.name", nil, m.Name)
	c.add(at, err)
	symbol, at, err := read(ctx, s, scopeGlobal, "nft.symbol", nil, m.Symbol)
	c.add(at, err)
	total, at, err := read(ctx, s, scopeGlobal, "nft.totalSupply", nil, m.TotalSupply)
	c.add(at, err)
	maxSupply, at, err := read(ctx, s, scopeGlobal, "nft.maxSupply", nil, m.MaxSupply)
	c.add(at, err)
	price, at, err := read(ctx, s, scopeGlobal, "nft.mintPrice", nil, m.MintPrice)
	c.add(at, err)
	if c.err != nil {
		return finish(&c, Collection{})
	}
	remaining := new(big.Int).Sub(maxSupply, total)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return finish(&c, Collection{
		Name:        name,
		Symbol:      symbol,
		TotalSupply: total,
		MaxSupply:   maxSupply,
		Remaining:   remaining,
		SoldOut:     soldOut(total, maxSupply),
		MintPrice:   gov.NewAmount(price, gov.EtherDecimals),
	})
}

// soldOut is false while either supply figure is still zero, which covers
// an uncapped or freshly deployed collection.
func soldOut(total, maxSupply *big.Int) bool {
	return total.Sign() > 0 && maxSupply.Sign() > 0 && total.Cmp(maxSupply) >= 0
}

// Token is one membership NFT and its holder.
type Token struct {
	ID            *big.Int       `json:"id"`
	Owner         common.Address `json:"owner"`
	TokenURI      string         `json:"tokenUri"`
	OwnerIsMember bool           `json:"ownerIsMember"`
}

func tokenScope(id *big.Int) string { return "token/" + id.String() }

// Token reads the owner and metadata URI of a minted token. A token that
// does not exist reverts, so its snapshot is unavailable.
func (s *Service) Token(ctx context.Context, id *big.Int) (Snapshot[Token], error) {
	m := s.chain.Membership
	if !m.Configured() {
		return unconfigured[Token](), nil
	}
	scope := tokenScope(id)
	var c collector
	owner, at, err := read(ctx, s, scope, "nft.ownerOf", []interface{}{id}, func(ctx context.Context) (common.Address, error) {
		return m.OwnerOf(ctx, id)
	})
	if !c.add(at, err) {
		return finish(&c, Token{})
	}
	uri, at, err := read(ctx, s, scope, "nft.tokenURI", []interface{}{id}, func(ctx context.Context) (string, error) {
		return m.TokenURI(ctx, id)
	})
	c.add(at, err)
	member, at, err := read(ctx, s, accountScope(owner), "nft.isMember", []interface{}{owner}, func(ctx context.Context) (bool, error) {
		return m.IsMember(ctx, owner)
	})
	c.add(at, err)
	return finish(&c, Token{ID: id, Owner: owner, TokenURI: uri, OwnerIsMember: member})
}

// DisplayName returns the verified ENS name of addr, or its truncated
// hex form when there is none or the lookup fails.
func (s *Service) DisplayName(ctx context.Context, addr common.Address) string {
	e := s.chain.ENS
	if e == nil {
		return gov.DisplayName(&addr, "")
	}
	name, _, err := read(ctx, s, accountScope(addr), "ens.name", nil, func(ctx context.Context) (string, error) {
		return e.ReverseName(ctx, addr)
	})
	if err != nil {
		return gov.DisplayName(&addr, "")
	}
	return gov.DisplayName(&addr, name)
}
