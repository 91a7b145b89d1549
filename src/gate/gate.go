// Package gate decides what a visitor may see from wallet and membership state.
package gate

import (
	"fmt"

	"github.com/stake-plus/bst-governance/src/gov"
)

// Kind enumerates the possible gate outcomes.
type Kind string

const (
	Allow             Kind = "allow"
	RequireWallet     Kind = "require_wallet"
	RequireMembership Kind = "require_membership"
	RequireTier       Kind = "require_tier"
)

// Input is everything the gate looks at. RequiredTier nil means any member.
type Input struct {
	Configured   bool
	Connected    bool
	IsMember     bool
	Tier         *gov.Tier
	RequiredTier *gov.Tier
}

// Decision is ephemeral and computed per request.
type Decision struct {
	Kind Kind      `json:"decision"`
	Tier *gov.Tier `json:"requiredTier,omitempty"`
}

func (d Decision) Allowed() bool { return d.Kind == Allow }

// Decide evaluates the rules in order; the first match wins.
func Decide(in Input) Decision {
	switch {
	case !in.Configured:
		return Decision{Kind: Allow}
	case !in.Connected:
		return Decision{Kind: RequireWallet}
	case !in.IsMember:
		return Decision{Kind: RequireMembership}
	case in.RequiredTier != nil && (in.Tier == nil || !in.Tier.AtLeast(*in.RequiredTier)):
		t := *in.RequiredTier
		return Decision{Kind: RequireTier, Tier: &t}
	}
	return Decision{Kind: Allow}
}

// Title is the fallback heading shown instead of gated content.
func (d Decision) Title() string {
	switch d.Kind {
	case RequireWallet:
		return "Connect Your Wallet"
	case RequireMembership, RequireTier:
		return "Membership Required"
	}
	return ""
}

// Message is the fallback body text.
func (d Decision) Message() string {
	switch d.Kind {
	case RequireWallet:
		return "Connect your wallet to verify your membership status."
	case RequireMembership:
		return "You need a membership NFT to access this content."
	case RequireTier:
		return fmt.Sprintf("This content requires %s tier or higher.", d.Tier)
	}
	return ""
}
