package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/chain/chaintest"
)

var (
	nftAddr      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenAddr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	governorAddr = common.HexToAddress("0x3000000000000000000000000000000000000003")
	registryAddr = common.HexToAddress("0x4000000000000000000000000000000000000004")
	resolverAddr = common.HexToAddress("0x5000000000000000000000000000000000000005")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func TestUnconfiguredContracts(t *testing.T) {
	c := chain.New(chaintest.NewCaller(), 1, chain.Addresses{})
	assert.False(t, c.Membership.Configured())
	assert.False(t, c.Token.Configured())
	assert.False(t, c.Governor.Configured())
	assert.Nil(t, c.Governor.Address())

	name, err := c.ENS.ReverseName(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestMembershipReads(t *testing.T) {
	fake := chaintest.NewCaller()
	fake.Deploy(nftAddr, chain.MembershipABI).
		Set("balanceOf", big.NewInt(2)).
		Set("isMember", true).
		Set("getMembershipTier", uint8(2)).
		Set("totalSupply", big.NewInt(120)).
		Set("maxSupply", big.NewInt(1000)).
		Set("mintPrice", big.NewInt(5e16)).
		Set("name", "Bulgarian Spiritual Treasury").
		Set("ownerOf", alice)

	m := chain.NewMembership(&nftAddr, fake)
	ctx := context.Background()

	bal, err := m.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal.Int64())

	ok, err := m.IsMember(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	tier, err := m.MembershipTier(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), tier)

	name, err := m.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bulgarian Spiritual Treasury", name)

	owner, err := m.OwnerOf(ctx, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = m.Symbol(ctx)
	assert.ErrorIs(t, err, chain.ErrNoCode)
}

func TestGovernorReadsAndErrors(t *testing.T) {
	fake := chaintest.NewCaller()
	gov := fake.Deploy(governorAddr, chain.GovernorABI).
		Set("state", uint8(1)).
		Set("proposalVotes", big.NewInt(3), big.NewInt(10), big.NewInt(1)).
		Set("proposalThreshold", big.NewInt(100))
	gov.Handlers["hasVoted"] = func(args []interface{}) ([]interface{}, error) {
		return []interface{}{args[1].(common.Address) == alice}, nil
	}
	gov.Errs["proposalDeadline"] = errors.New("503 service unavailable")

	g := chain.NewGovernor(&governorAddr, fake)
	ctx := context.Background()

	votes, err := g.ProposalVotes(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), votes.Against.Int64())
	assert.Equal(t, int64(10), votes.For.Int64())
	assert.Equal(t, int64(1), votes.Abstain.Int64())

	voted, err := g.HasVoted(ctx, big.NewInt(1), alice)
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = g.HasVoted(ctx, big.NewInt(1), tokenAddr)
	require.NoError(t, err)
	assert.False(t, voted)

	_, err = g.ProposalDeadline(ctx, big.NewInt(1))
	assert.ErrorContains(t, err, "503")
}

func TestWriteCalldata(t *testing.T) {
	fake := chaintest.NewCaller()
	g := chain.NewGovernor(&governorAddr, fake)
	tok := chain.NewToken(&tokenAddr, fake)
	m := chain.NewMembership(&nftAddr, fake)

	tx, err := g.CastVoteWithReason(big.NewInt(42), 1, "for the heritage fund")
	require.NoError(t, err)
	assert.Equal(t, governorAddr, tx.To)
	assert.Equal(t, "castVoteWithReason", tx.Method)
	assert.Equal(t, "0x0", tx.ValueHex())
	method, err := chain.GovernorABI.MethodById(tx.Data[:4])
	require.NoError(t, err)
	args, err := method.Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(42), args[0].(*big.Int).Int64())
	assert.Equal(t, uint8(1), args[1])
	assert.Equal(t, "for the heritage fund", args[2])

	tx, err = tok.Delegate(alice)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, tx.To)
	assert.Equal(t, chain.TokenABI.Methods["delegate"].ID, []byte(tx.Data[:4]))

	tx, err = m.MintWithTier(3, big.NewInt(1e18))
	require.NoError(t, err)
	assert.Equal(t, "0xde0b6b3a7640000", tx.ValueHex())
}

func TestDescriptionHashAndProposalID(t *testing.T) {
	desc := "# Restore the Rila frescoes"
	assert.Equal(t, crypto.Keccak256Hash([]byte(desc)), common.Hash(chain.DescriptionHash(desc)))

	a := chain.Action{Targets: []common.Address{alice}, Values: []*big.Int{big.NewInt(0)}, Calldatas: [][]byte{{}}}
	id1, err := chain.ProposalID(a, desc)
	require.NoError(t, err)
	id2, err := chain.ProposalID(a, desc+" ")
	require.NoError(t, err)
	assert.NotEqual(t, 0, id1.Sign())
	assert.NotEqual(t, id1, id2)
}

func TestNamehash(t *testing.T) {
	assert.Equal(t, [32]byte{}, chain.Namehash(""))
	// EIP-137 reference values
	assert.Equal(t,
		"0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae",
		common.Hash(chain.Namehash("eth")).Hex())
	assert.Equal(t,
		"0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
		common.Hash(chain.Namehash("foo.eth")).Hex())
}

func TestReverseName(t *testing.T) {
	fake := chaintest.NewCaller()
	fake.Deploy(registryAddr, chain.ENSABI).Set("resolver", resolverAddr)
	resolver := fake.Deploy(resolverAddr, chain.ENSABI).Set("name", "ivan.eth")
	resolver.Set("addr", alice)

	ens := chain.NewENS(&registryAddr, fake)
	name, err := ens.ReverseName(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "ivan.eth", name)

	// forward record pointing elsewhere is not trusted
	resolver.Set("addr", tokenAddr)
	name, err = ens.ReverseName(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, name)
}
