package gov

import (
	"fmt"
	"strings"
)

// Tier is the membership rank reported by the NFT contract.
type Tier uint8

const (
	TierBasic Tier = iota
	TierSilver
	TierGold
	TierPlatinum
)

var tierLabels = [...]string{"Basic", "Silver", "Gold", "Platinum"}

func (t Tier) Valid() bool { return int(t) < len(tierLabels) }

func (t Tier) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return tierLabels[t]
}

// AtLeast reports whether t ranks at or above required.
func (t Tier) AtLeast(required Tier) bool { return t >= required }

// ParseTier accepts a label (case-insensitive) or the numeric enum value.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for i, l := range tierLabels {
		if strings.EqualFold(s, l) || s == fmt.Sprint(i) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ProposalState mirrors the OpenZeppelin Governor state enum.
type ProposalState uint8

const (
	StatePending ProposalState = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExpired
	StateExecuted
)

var stateLabels = [...]string{
	"Pending", "Active", "Canceled", "Defeated",
	"Succeeded", "Queued", "Expired", "Executed",
}

func (s ProposalState) String() string {
	if int(s) >= len(stateLabels) {
		return "Unknown"
	}
	return stateLabels[s]
}

func (s ProposalState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Final reports whether no further transition can happen on-chain.
func (s ProposalState) Final() bool {
	switch s {
	case StateCanceled, StateDefeated, StateExpired, StateExecuted:
		return true
	}
	return false
}

// VoteSupport is the Governor counting mode value for castVote.
type VoteSupport uint8

const (
	VoteAgainst VoteSupport = iota
	VoteFor
	VoteAbstain
)

func (v VoteSupport) Valid() bool { return v <= VoteAbstain }

func (v VoteSupport) String() string {
	switch v {
	case VoteAgainst:
		return "Against"
	case VoteFor:
		return "For"
	case VoteAbstain:
		return "Abstain"
	}
	return "Unknown"
}

func ParseVoteSupport(s string) (VoteSupport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "against", "0":
		return VoteAgainst, nil
	case "for", "1":
		return VoteFor, nil
	case "abstain", "2":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("unknown vote support %q", s)
}
