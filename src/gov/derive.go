package gov

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MembershipRecord is recomputed from contract reads on every request.
type MembershipRecord struct {
	Owner        common.Address `json:"owner"`
	TokenBalance *big.Int       `json:"tokenBalance"`
	Tier         *Tier          `json:"tier,omitempty"`
	IsMember     bool           `json:"isMember"`
}

// DeriveMembership applies isMember == balance > 0. The tier comes from the
// contract and is only kept for members.
func DeriveMembership(owner common.Address, balance *big.Int, tierRaw *uint8) (MembershipRecord, error) {
	if balance == nil {
		balance = new(big.Int)
	}
	rec := MembershipRecord{
		Owner:        owner,
		TokenBalance: new(big.Int).Set(balance),
		IsMember:     balance.Sign() > 0,
	}
	if !rec.IsMember || tierRaw == nil {
		return rec, nil
	}
	t := Tier(*tierRaw)
	if !t.Valid() {
		return rec, fmt.Errorf("contract reported unknown tier %d", *tierRaw)
	}
	rec.Tier = &t
	return rec, nil
}

// VotingPower is the ERC20Votes view of an account.
type VotingPower struct {
	TokenBalance *big.Int        `json:"tokenBalance"`
	DelegatedTo  *common.Address `json:"delegatedTo,omitempty"`
	Votes        *big.Int        `json:"votes"`
}

// DeriveVotingPower takes votes verbatim from getVotes, except that an
// account with no delegate has no active votes regardless of balance.
func DeriveVotingPower(balance *big.Int, delegate *common.Address, votes *big.Int) VotingPower {
	vp := VotingPower{
		TokenBalance: orZero(balance),
		Votes:        orZero(votes),
	}
	if IsZero(delegate) {
		vp.Votes = new(big.Int)
		return vp
	}
	d := *delegate
	vp.DelegatedTo = &d
	return vp
}

// MarshalJSON renders token amounts as decimal strings with their
// formatted form, since they overflow JavaScript numbers.
func (vp VotingPower) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TokenBalance Amount          `json:"tokenBalance"`
		DelegatedTo  *common.Address `json:"delegatedTo,omitempty"`
		Votes        Amount          `json:"votes"`
	}{NewAmount(vp.TokenBalance, EtherDecimals), vp.DelegatedTo, NewAmount(vp.Votes, EtherDecimals)})
}

// SelfDelegated reports whether owner delegates to itself.
func (vp VotingPower) SelfDelegated(owner common.Address) bool {
	return vp.DelegatedTo != nil && *vp.DelegatedTo == owner
}

// NeedsActivation is true when tokens are held but no votes are active.
func (vp VotingPower) NeedsActivation() bool {
	return vp.TokenBalance.Sign() > 0 && vp.DelegatedTo == nil
}

// CanPropose compares active votes against the governor's proposal threshold.
func CanPropose(votes, threshold *big.Int) bool {
	return orZero(votes).Cmp(orZero(threshold)) >= 0
}

// Proposal mirrors the governor's view of a proposal.
type Proposal struct {
	ID       *big.Int      `json:"id"`
	State    ProposalState `json:"state"`
	For      *big.Int      `json:"forVotes"`
	Against  *big.Int      `json:"againstVotes"`
	Abstain  *big.Int      `json:"abstainVotes"`
	Deadline uint64        `json:"deadline"`
	Snapshot uint64        `json:"snapshot"`
	HasVoted bool          `json:"hasVoted"`
}

func (p Proposal) MarshalJSON() ([]byte, error) {
	var id string
	if p.ID != nil {
		id = p.ID.String()
	}
	return json.Marshal(struct {
		ID       string        `json:"id"`
		State    ProposalState `json:"state"`
		For      Amount        `json:"forVotes"`
		Against  Amount        `json:"againstVotes"`
		Abstain  Amount        `json:"abstainVotes"`
		Deadline uint64        `json:"deadline"`
		Snapshot uint64        `json:"snapshot"`
		HasVoted bool          `json:"hasVoted"`
	}{
		ID:       id,
		State:    p.State,
		For:      NewAmount(p.For, EtherDecimals),
		Against:  NewAmount(p.Against, EtherDecimals),
		Abstain:  NewAmount(p.Abstain, EtherDecimals),
		Deadline: p.Deadline,
		Snapshot: p.Snapshot,
		HasVoted: p.HasVoted,
	})
}

// TotalVotes sums the three tallies.
func (p Proposal) TotalVotes() *big.Int {
	t := new(big.Int).Add(orZero(p.For), orZero(p.Against))
	return t.Add(t, orZero(p.Abstain))
}

// ForShare returns the For percentage of all cast votes, 0 when none.
func (p Proposal) ForShare() float64 {
	total := p.TotalVotes()
	if total.Sign() == 0 {
		return 0
	}
	r := new(big.Rat).SetFrac(new(big.Int).Mul(orZero(p.For), big.NewInt(100)), total)
	f, _ := r.Float64()
	return f
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
