package reads_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/chain/chaintest"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/metrics"
	"github.com/stake-plus/bst-governance/src/reads"
)

var (
	nftAddr      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenAddr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	governorAddr = common.HexToAddress("0x3000000000000000000000000000000000000003")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

var fastOpts = reads.Options{
	Timeout:    time.Second,
	Attempts:   3,
	MinBackoff: time.Millisecond,
	MaxBackoff: 2 * time.Millisecond,
	Staleness:  time.Minute,
}

type fixture struct {
	fake     *chaintest.Caller
	nft      *chaintest.Contract
	token    *chaintest.Contract
	governor *chaintest.Contract
	svc      *reads.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{fake: chaintest.NewCaller()}
	f.nft = f.fake.Deploy(nftAddr, chain.MembershipABI).
		Set("balanceOf", big.NewInt(1)).
		Set("getMembershipTier", uint8(gov.TierGold)).
		Set("name", "BST Membership").
		Set("symbol", "BSTM").
		Set("totalSupply", big.NewInt(1000)).
		Set("maxSupply", big.NewInt(1000)).
		Set("mintPrice", big.NewInt(5e16))
	f.token = f.fake.Deploy(tokenAddr, chain.TokenABI).
		Set("balanceOf", big.NewInt(7e18)).
		Set("delegates", alice).
		Set("getVotes", big.NewInt(7e18)).
		Set("name", "BST").
		Set("symbol", "BST").
		Set("decimals", uint8(18)).
		Set("totalSupply", big.NewInt(0).Mul(big.NewInt(1e18), big.NewInt(1e6)))
	f.governor = f.fake.Deploy(governorAddr, chain.GovernorABI).
		Set("state", uint8(gov.StateActive)).
		Set("proposalVotes", big.NewInt(1), big.NewInt(5), big.NewInt(2)).
		Set("proposalDeadline", big.NewInt(200)).
		Set("proposalSnapshot", big.NewInt(100)).
		Set("hasVoted", false).
		Set("proposalThreshold", big.NewInt(1e18)).
		Set("quorum", big.NewInt(4e18))
	c := chain.New(f.fake, 11155111, chain.Addresses{Membership: &nftAddr, Token: &tokenAddr, Governor: &governorAddr})
	f.svc = reads.New(c, fastOpts, nil)
	return f
}

func TestUnconfiguredReads(t *testing.T) {
	svc := reads.New(chain.New(chaintest.NewCaller(), 1, chain.Addresses{}), fastOpts, nil)
	ctx := context.Background()

	m, err := svc.Membership(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnconfigured, m.Status)

	g, err := svc.Governance(ctx)
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnconfigured, g.Status)
	assert.False(t, g.Value.Configured)

	assert.Equal(t, "0x0000...11ce", strings.ToLower(svc.DisplayName(ctx, alice)))
}

func TestMembershipSnapshot(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Membership(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.True(t, snap.Value.IsMember)
	require.NotNil(t, snap.Value.Tier)
	assert.Equal(t, gov.TierGold, *snap.Value.Tier)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestMembershipNonMemberSkipsTier(t *testing.T) {
	f := newFixture(t)
	f.nft.Set("balanceOf", big.NewInt(0))
	snap, err := f.svc.Membership(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, snap.Value.IsMember)
	assert.Nil(t, snap.Value.Tier)
	assert.Zero(t, f.fake.Calls("getMembershipTier"))
}

func TestMembershipUnknownTierIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.nft.Set("getMembershipTier", uint8(9))
	snap, err := f.svc.Membership(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnavailable, snap.Status)
}

func TestVotingPowerWithoutDelegateHasNoVotes(t *testing.T) {
	f := newFixture(t)
	f.token.Set("delegates", common.Address{})
	snap, err := f.svc.VotingPower(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.Equal(t, int64(0), snap.Value.Votes.Int64())
	assert.True(t, snap.Value.NeedsActivation())
}

func TestProposalDetail(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Proposal(context.Background(), big.NewInt(42), &alice)
	require.NoError(t, err)
	require.True(t, snap.Ready())
	p := snap.Value
	assert.Equal(t, gov.StateActive, p.State)
	assert.Equal(t, int64(5), p.For.Int64())
	assert.Equal(t, int64(1), p.Against.Int64())
	assert.Equal(t, int64(2), p.Abstain.Int64())
	assert.Equal(t, uint64(200), p.Deadline)
	assert.Equal(t, uint64(100), p.Snapshot)
	assert.Equal(t, "4000000000000000000", p.Quorum.String())
}

func TestStalenessWindowServesCachedValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Proposal(ctx, big.NewInt(1), nil)
	require.NoError(t, err)
	_, err = f.svc.Proposal(ctx, big.NewInt(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.Calls("state"))
}

func TestWatcherEventEvictsProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := big.NewInt(1)

	_, err := f.svc.Proposal(ctx, id, &alice)
	require.NoError(t, err)
	f.governor.Set("hasVoted", true)

	f.svc.HandleEvent(chain.Event{Kind: chain.EventVoteCast, ProposalID: id, Account: alice})

	snap, err := f.svc.Proposal(ctx, id, &alice)
	require.NoError(t, err)
	assert.True(t, snap.Value.HasVoted)
	assert.Equal(t, 2, f.fake.Calls("state"))
}

func TestTransientErrorsAreRetried(t *testing.T) {
	f := newFixture(t)
	var n atomic.Int32
	f.governor.Handlers["proposalThreshold"] = func([]interface{}) ([]interface{}, error) {
		if n.Add(1) < 3 {
			return nil, errors.New("503 service unavailable")
		}
		return []interface{}{big.NewInt(1e18)}, nil
	}
	snap, err := f.svc.ProposalThreshold(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.Equal(t, int32(3), n.Load())
}

func TestExhaustedRetriesMarkUnavailable(t *testing.T) {
	f := newFixture(t)
	f.governor.Errs["proposalThreshold"] = errors.New("connection refused")
	snap, err := f.svc.ProposalThreshold(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnavailable, snap.Status)
	assert.Equal(t, 3, f.fake.Calls("proposalThreshold"))
}

func TestRevertIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.governor.Errs["proposalThreshold"] = errors.New("execution reverted")
	snap, err := f.svc.ProposalThreshold(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnavailable, snap.Status)
	assert.Equal(t, 1, f.fake.Calls("proposalThreshold"))
}

func TestCancelledReadIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.nft.Handlers["balanceOf"] = func([]interface{}) ([]interface{}, error) {
		cancel()
		return []interface{}{big.NewInt(1)}, nil
	}
	_, err := f.svc.Membership(ctx, alice)
	require.Error(t, err)
	assert.True(t, reads.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectionSoldOut(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Collection(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.True(t, snap.Value.SoldOut)
	assert.Equal(t, "0.05", snap.Value.MintPrice.Formatted)
}

func TestCollectionWithoutSupplyIsNotSoldOut(t *testing.T) {
	for _, tc := range []struct {
		total, max int64
	}{{0, 0}, {0, 1000}, {5, 0}} {
		f := newFixture(t)
		f.nft.Set("totalSupply", big.NewInt(tc.total)).Set("maxSupply", big.NewInt(tc.max))
		snap, err := f.svc.Collection(context.Background())
		require.NoError(t, err)
		require.True(t, snap.Ready())
		assert.False(t, snap.Value.SoldOut, "total=%d max=%d", tc.total, tc.max)
	}
}

func TestTokenSnapshot(t *testing.T) {
	f := newFixture(t)
	f.nft.Set("ownerOf", alice).Set("tokenURI", "ipfs://meta/7").Set("isMember", true)

	snap, err := f.svc.Token(context.Background(), big.NewInt(7))
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.Equal(t, alice, snap.Value.Owner)
	assert.Equal(t, "ipfs://meta/7", snap.Value.TokenURI)
	assert.True(t, snap.Value.OwnerIsMember)
	assert.Equal(t, "7", snap.Value.ID.String())
}

func TestTokenNotMintedIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.nft.Errs["ownerOf"] = errors.New("execution reverted: ERC721NonexistentToken")

	snap, err := f.svc.Token(context.Background(), big.NewInt(99))
	require.NoError(t, err)
	assert.Equal(t, reads.StatusUnavailable, snap.Status)
	assert.Zero(t, f.fake.Calls("tokenURI"))
}

func TestGovernanceInfo(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Governance(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Ready())
	assert.True(t, snap.Value.Configured)
	assert.Equal(t, "1", snap.Value.ProposalThreshold.Formatted)
	assert.Equal(t, "BST", snap.Value.TokenInfo.Symbol)
}

func TestMetricsCountReads(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	svc := reads.New(f.svc.Chain(), fastOpts, metrics.New(reg))
	_, err := svc.ProposalThreshold(context.Background())
	require.NoError(t, err)
	_, err = svc.ProposalThreshold(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
