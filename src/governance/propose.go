package governance

import (
	"encoding/json"
	"fmt"
	"html"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/microcosm-cc/bluemonday"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/session"
)

type ProposalKind string

const (
	KindSignal   ProposalKind = "signal"
	KindTransfer ProposalKind = "transfer"
	KindCustom   ProposalKind = "custom"
)

func ParseProposalKind(s string) (ProposalKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "signal", "simple":
		return KindSignal, nil
	case "transfer":
		return KindTransfer, nil
	case "custom":
		return KindCustom, nil
	}
	return "", invalid("unknown proposal type %q", s)
}

var Categories = []string{"general", "heritage", "education", "technology", "treasury", "governance"}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 20000
)

// ProposalForm is what a member submits to create a proposal.
type ProposalForm struct {
	Kind        ProposalKind `json:"type"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Description string       `json:"description"`

	// transfer
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount,omitempty"`

	// custom
	Target   string `json:"targetAddress,omitempty"`
	Value    string `json:"value,omitempty"`
	Calldata string `json:"calldata,omitempty"`
}

var policy = bluemonday.StrictPolicy()

// sanitize strips markup but keeps the text itself verbatim, since it is
// written on-chain as is.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// Normalize sanitizes free text and fills defaults.
func (f ProposalForm) Normalize() ProposalForm {
	f.Title = sanitize(f.Title)
	f.Description = sanitize(f.Description)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.Category == "" {
		f.Category = "general"
	}
	if f.Kind == "" {
		f.Kind = KindSignal
	}
	return f
}

// FullDescription is the on-chain description string. The governor hashes
// it for queue and execute, so it must be reproduced byte for byte.
func (f ProposalForm) FullDescription() string {
	return fmt.Sprintf("# %s\n\n**Category:** %s\n\n%s", f.Title, f.Category, f.Description)
}

// Validate checks the form fields only. Call Normalize first.
func (f ProposalForm) Validate() error {
	if f.Title == "" {
		return invalid("title is required")
	}
	if len(f.Title) > maxTitleLen {
		return invalid("title longer than %d characters", maxTitleLen)
	}
	if f.Description == "" {
		return invalid("description is required")
	}
	if len(f.Description) > maxDescriptionLen {
		return invalid("description longer than %d characters", maxDescriptionLen)
	}
	known := false
	for _, c := range Categories {
		if c == f.Category {
			known = true
			break
		}
	}
	if !known {
		return invalid("unknown category %q", f.Category)
	}
	switch f.Kind {
	case KindSignal:
	case KindTransfer:
		if _, err := gov.ParseAddress(f.Recipient); err != nil {
			return invalid("invalid recipient address")
		}
		amt, err := gov.ParseEther(f.Amount)
		if err != nil || amt.Sign() <= 0 {
			return invalid("invalid transfer amount")
		}
	case KindCustom:
		if _, err := gov.ParseAddress(f.Target); err != nil {
			return invalid("invalid target address")
		}
		if f.Value != "" {
			if _, err := gov.ParseEther(f.Value); err != nil {
				return invalid("invalid value")
			}
		}
		if f.Calldata != "" && f.Calldata != "0x" {
			if _, err := hexutil.Decode(f.Calldata); err != nil {
				return invalid("calldata must be 0x-prefixed hex")
			}
		}
	default:
		return invalid("unknown proposal type %q", f.Kind)
	}
	return nil
}

// Action resolves the form to the governor's (targets, values, calldatas).
func (f ProposalForm) Action(proposer common.Address) (chain.Action, error) {
	switch f.Kind {
	case KindSignal:
		return chain.Action{
			Targets:   []common.Address{proposer},
			Values:    []*big.Int{new(big.Int)},
			Calldatas: [][]byte{{}},
		}, nil
	case KindTransfer:
		to, err := gov.ParseAddress(f.Recipient)
		if err != nil {
			return chain.Action{}, invalid("invalid recipient address")
		}
		amt, err := gov.ParseEther(f.Amount)
		if err != nil {
			return chain.Action{}, invalid("invalid transfer amount")
		}
		return chain.Action{
			Targets:   []common.Address{to},
			Values:    []*big.Int{amt},
			Calldatas: [][]byte{{}},
		}, nil
	case KindCustom:
		to, err := gov.ParseAddress(f.Target)
		if err != nil {
			return chain.Action{}, invalid("invalid target address")
		}
		value := new(big.Int)
		if f.Value != "" {
			if value, err = gov.ParseEther(f.Value); err != nil {
				return chain.Action{}, invalid("invalid value")
			}
		}
		data := []byte{}
		if f.Calldata != "" && f.Calldata != "0x" {
			if data, err = hexutil.Decode(f.Calldata); err != nil {
				return chain.Action{}, invalid("calldata must be 0x-prefixed hex")
			}
		}
		return chain.Action{
			Targets:   []common.Address{to},
			Values:    []*big.Int{value},
			Calldatas: [][]byte{data},
		}, nil
	}
	return chain.Action{}, invalid("unknown proposal type %q", f.Kind)
}

// ValidatePropose applies the creation preconditions. The voting power
// check comes before form validation so an under-threshold caller is
// refused even with a valid form.
func ValidatePropose(s session.WalletSession, votes, threshold *big.Int, form ProposalForm) error {
	if err := requireConnected(s); err != nil {
		return err
	}
	if !gov.CanPropose(votes, threshold) {
		return ErrInsufficientVotingPower
	}
	return form.Validate()
}

// PreparedProposal carries everything needed to track the proposal after
// the wallet submits it.
type PreparedProposal struct {
	Tx          chain.TxRequest
	ProposalID  *big.Int
	Description string
	Action      chain.Action
}

func (p PreparedProposal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tx          chain.TxRequest `json:"tx"`
		ProposalID  string          `json:"proposalId"`
		Description string          `json:"description"`
	}{p.Tx, p.ProposalID.String(), p.Description})
}

func (b *Builder) Propose(s session.WalletSession, votes, threshold *big.Int, form ProposalForm) (PreparedProposal, error) {
	if !b.chain.Governor.Configured() || !b.chain.Token.Configured() {
		return PreparedProposal{}, ErrNotConfigured
	}
	form = form.Normalize()
	if err := ValidatePropose(s, votes, threshold, form); err != nil {
		return PreparedProposal{}, err
	}
	proposer, _ := s.Account()
	action, err := form.Action(proposer)
	if err != nil {
		return PreparedProposal{}, err
	}
	desc := form.FullDescription()
	tx, err := b.chain.Governor.Propose(action, desc)
	if err != nil {
		return PreparedProposal{}, err
	}
	id, err := chain.ProposalID(action, desc)
	if err != nil {
		return PreparedProposal{}, err
	}
	return PreparedProposal{Tx: tx, ProposalID: id, Description: desc, Action: action}, nil
}
