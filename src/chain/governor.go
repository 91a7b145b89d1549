package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Governor wraps an OpenZeppelin Governor. Nil means unconfigured.
type Governor struct{ c contract }

func NewGovernor(addr *common.Address, caller Caller) *Governor {
	if addr == nil || caller == nil {
		return nil
	}
	return &Governor{c: contract{address: *addr, abi: GovernorABI, caller: caller}}
}

func (g *Governor) Configured() bool { return g != nil }

func (g *Governor) Address() *common.Address {
	if g == nil {
		return nil
	}
	a := g.c.address
	return &a
}

func (g *Governor) State(ctx context.Context, id *big.Int) (uint8, error) {
	return g.c.uint8Call(ctx, "state", id)
}

// Votes holds proposalVotes output; the contract orders it against, for, abstain.
type Votes struct {
	Against *big.Int
	For     *big.Int
	Abstain *big.Int
}

func (g *Governor) ProposalVotes(ctx context.Context, id *big.Int) (Votes, error) {
	vals, err := g.c.call(ctx, "proposalVotes", id)
	if err != nil {
		return Votes{}, err
	}
	var v Votes
	if v.Against, err = bigAt(vals, 0, "proposalVotes"); err != nil {
		return Votes{}, err
	}
	if v.For, err = bigAt(vals, 1, "proposalVotes"); err != nil {
		return Votes{}, err
	}
	if v.Abstain, err = bigAt(vals, 2, "proposalVotes"); err != nil {
		return Votes{}, err
	}
	return v, nil
}

func (g *Governor) ProposalDeadline(ctx context.Context, id *big.Int) (*big.Int, error) {
	return g.c.bigCall(ctx, "proposalDeadline", id)
}

func (g *Governor) ProposalSnapshot(ctx context.Context, id *big.Int) (*big.Int, error) {
	return g.c.bigCall(ctx, "proposalSnapshot", id)
}

func (g *Governor) HasVoted(ctx context.Context, id *big.Int, account common.Address) (bool, error) {
	return g.c.boolCall(ctx, "hasVoted", id, account)
}

func (g *Governor) ProposalThreshold(ctx context.Context) (*big.Int, error) {
	return g.c.bigCall(ctx, "proposalThreshold")
}

// Quorum is evaluated at a timepoint, normally the proposal snapshot.
func (g *Governor) Quorum(ctx context.Context, timepoint *big.Int) (*big.Int, error) {
	return g.c.bigCall(ctx, "quorum", timepoint)
}

// Action is the (targets, values, calldatas) tuple every proposal carries.
type Action struct {
	Targets   []common.Address
	Values    []*big.Int
	Calldatas [][]byte
}

func (g *Governor) Propose(a Action, description string) (TxRequest, error) {
	return g.c.pack("propose", nil, a.Targets, a.Values, a.Calldatas, description)
}

func (g *Governor) CastVote(id *big.Int, support uint8) (TxRequest, error) {
	return g.c.pack("castVote", nil, id, support)
}

func (g *Governor) CastVoteWithReason(id *big.Int, support uint8, reason string) (TxRequest, error) {
	return g.c.pack("castVoteWithReason", nil, id, support, reason)
}

func (g *Governor) Queue(a Action, description string) (TxRequest, error) {
	return g.c.pack("queue", nil, a.Targets, a.Values, a.Calldatas, DescriptionHash(description))
}

func (g *Governor) Execute(a Action, description string, value *big.Int) (TxRequest, error) {
	return g.c.pack("execute", value, a.Targets, a.Values, a.Calldatas, DescriptionHash(description))
}

// DescriptionHash is keccak256 of the proposal description, as the
// governor uses it for queue and execute.
func DescriptionHash(description string) [32]byte {
	return [32]byte(crypto.Keccak256Hash([]byte(description)))
}

// ProposalID reproduces the governor's hashProposal so a proposal can be
// addressed before the ProposalCreated event is observed.
func ProposalID(a Action, description string) (*big.Int, error) {
	args, err := hashProposalArgs()
	if err != nil {
		return nil, err
	}
	enc, err := args.Pack(a.Targets, a.Values, a.Calldatas, DescriptionHash(description))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(crypto.Keccak256(enc)), nil
}

func hashProposalArgs() (abi.Arguments, error) {
	var args abi.Arguments
	for _, t := range []string{"address[]", "uint256[]", "bytes[]", "bytes32"} {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}
