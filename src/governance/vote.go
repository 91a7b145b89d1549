package governance

import (
	"strings"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/session"
)

// ValidateVote checks, in order: a connected wallet, no earlier vote and an
// Active proposal. A recorded vote blocks regardless of state.
func ValidateVote(s session.WalletSession, p gov.Proposal, support gov.VoteSupport) error {
	if err := requireConnected(s); err != nil {
		return err
	}
	if p.HasVoted {
		return ErrAlreadyVoted
	}
	if p.State != gov.StateActive {
		return ErrProposalNotActive
	}
	if !support.Valid() {
		return invalid("unknown vote support %d", support)
	}
	return nil
}

// Vote builds castVote, or castVoteWithReason when a reason is given.
func (b *Builder) Vote(s session.WalletSession, p gov.Proposal, support gov.VoteSupport, reason string) (chain.TxRequest, error) {
	if !b.chain.Governor.Configured() {
		return chain.TxRequest{}, ErrNotConfigured
	}
	if err := ValidateVote(s, p, support); err != nil {
		return chain.TxRequest{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return b.chain.Governor.CastVote(p.ID, uint8(support))
	}
	return b.chain.Governor.CastVoteWithReason(p.ID, uint8(support), sanitize(reason))
}
