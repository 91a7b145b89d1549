package governance

import (
	"fmt"
	"math/big"
	"time"

	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/session"
)

// ProposalView is a proposal prepared for display to one session.
type ProposalView struct {
	Proposal     gov.Proposal `json:"proposal"`
	StateLabel   string       `json:"stateLabel"`
	Quorum       gov.Amount   `json:"quorum"`
	ForPercent   float64      `json:"forPercent"`
	TotalVotes   gov.Amount   `json:"totalVotes"`
	DeadlineText string       `json:"deadlineText"`
	CanVote      bool         `json:"canVote"`
	// Closed is set once the proposal can no longer change state.
	Closed bool `json:"closed"`
}

// NewView derives display fields. The governor clock is timestamp based, so
// the deadline is read as unix seconds.
func NewView(p gov.Proposal, quorum *big.Int, s session.WalletSession, now time.Time) ProposalView {
	return ProposalView{
		Proposal:     p,
		StateLabel:   p.State.String(),
		Quorum:       gov.NewAmount(quorum, gov.EtherDecimals),
		ForPercent:   p.ForShare(),
		TotalVotes:   gov.NewAmount(p.TotalVotes(), gov.EtherDecimals),
		DeadlineText: DeadlineText(p.Deadline, now),
		CanVote:      ValidateVote(s, p, gov.VoteFor) == nil,
		Closed:       p.State.Final(),
	}
}

// DeadlineText renders the time left until deadline.
func DeadlineText(deadline uint64, now time.Time) string {
	if deadline == 0 {
		return "Unknown"
	}
	diff := time.Unix(int64(deadline), 0).Sub(now)
	if diff <= 0 {
		return "Ended"
	}
	days := int(diff / (24 * time.Hour))
	hours := int((diff % (24 * time.Hour)) / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%dd %dh left", days, hours)
	}
	return fmt.Sprintf("%dh left", hours)
}
