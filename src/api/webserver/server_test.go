package webserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stake-plus/bst-governance/src/api/webserver"
	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/chain/chaintest"
	"github.com/stake-plus/bst-governance/src/config"
	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

const testChainID = 11155111

var (
	nftAddr      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenAddr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	governorAddr = common.HexToAddress("0x3000000000000000000000000000000000000003")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

type env struct {
	fake     *chaintest.Caller
	nft      *chaintest.Contract
	token    *chaintest.Contract
	governor *chaintest.Contract
	cfg      *config.Config
	deps     webserver.Deps
}

// newEnv wires a gateway over fake contracts. alice holds a Gold NFT and
// enough votes to propose unless a test changes the fixture.
func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{fake: chaintest.NewCaller(), cfg: config.Defaults()}
	e.nft = e.fake.Deploy(nftAddr, chain.MembershipABI).
		Set("balanceOf", big.NewInt(1)).
		Set("getMembershipTier", uint8(gov.TierGold)).
		Set("name", "BST Membership").
		Set("symbol", "BSTM").
		Set("totalSupply", big.NewInt(10)).
		Set("maxSupply", big.NewInt(1000)).
		Set("mintPrice", big.NewInt(5e16))
	e.token = e.fake.Deploy(tokenAddr, chain.TokenABI).
		Set("balanceOf", big.NewInt(5e18)).
		Set("delegates", alice).
		Set("getVotes", big.NewInt(5e18))
	e.governor = e.fake.Deploy(governorAddr, chain.GovernorABI).
		Set("state", uint8(gov.StateActive)).
		Set("proposalVotes", big.NewInt(1), big.NewInt(5), big.NewInt(2)).
		Set("proposalDeadline", big.NewInt(time.Now().Add(time.Hour).Unix())).
		Set("proposalSnapshot", big.NewInt(100)).
		Set("hasVoted", false).
		Set("proposalThreshold", big.NewInt(1e18)).
		Set("quorum", big.NewInt(4e18))

	c := chain.New(e.fake, testChainID, chain.Addresses{Membership: &nftAddr, Token: &tokenAddr, Governor: &governorAddr})
	svc := reads.New(c, reads.Options{
		Timeout:    time.Second,
		Attempts:   2,
		MinBackoff: time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
		Staleness:  time.Minute,
	}, nil)
	e.deps = webserver.Deps{
		Config:   e.cfg,
		Reads:    svc,
		Sessions: session.Static(session.Connected(alice, testChainID)),
	}
	return e
}

func (e *env) disconnected() { e.deps.Sessions = session.Static(session.Disconnected()) }

func (e *env) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return do(t, webserver.New(e.deps), method, path, body, "")
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestNonMemberSeesMintAndIsGatedFromAdmin(t *testing.T) {
	e := newEnv(t)
	e.nft.Set("balanceOf", big.NewInt(0))

	rec, body := e.do(t, http.MethodGet, "/v1/membership", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, true, body["showMintCTA"])

	rec, body = e.do(t, http.MethodGet, "/v1/admin", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "require_membership", body["decision"])
	assert.Equal(t, "Membership Required", body["title"])
	assert.Equal(t, 0, e.fake.Calls("getMembershipTier"))
}

func TestGoldMemberReachesAdmin(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(t, http.MethodGet, "/v1/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"Proposals", "Treasury", "Members"}, body["tabs"])
}

func TestSilverMemberNeedsTier(t *testing.T) {
	e := newEnv(t)
	e.nft.Set("getMembershipTier", uint8(gov.TierSilver))
	rec, body := e.do(t, http.MethodGet, "/v1/admin", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "require_tier", body["decision"])
	assert.Equal(t, "Gold", body["requiredTier"])
	assert.Equal(t, "This content requires Gold tier or higher.", body["message"])
}

func TestDisconnectedIsAskedForWallet(t *testing.T) {
	e := newEnv(t)
	e.disconnected()
	rec, body := e.do(t, http.MethodGet, "/v1/admin", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "require_wallet", body["decision"])
	assert.Equal(t, 0, e.fake.Calls("balanceOf"))

	rec, body = e.do(t, http.MethodGet, "/v1/membership", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["showMintCTA"])
}

func TestUnconfiguredMembershipAllows(t *testing.T) {
	e := newEnv(t)
	e.deps.Reads = reads.New(chain.New(e.fake, testChainID, chain.Addresses{}), reads.Options{}, nil)
	e.disconnected()
	rec, _ := e.do(t, http.MethodGet, "/v1/admin", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnavailableMembershipFailsClosed(t *testing.T) {
	e := newEnv(t)
	e.nft.Errs["balanceOf"] = errors.New("execution reverted")
	rec, _ := e.do(t, http.MethodGet, "/v1/admin", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAccessReportsDecision(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(t, http.MethodGet, "/v1/access?tier=Platinum", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "require_tier", body["decision"])

	rec, _ = e.do(t, http.MethodGet, "/v1/access?tier=Diamond", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteBlockedWhenAlreadyVoted(t *testing.T) {
	e := newEnv(t)
	e.governor.Set("hasVoted", true)
	rec, body := e.do(t, http.MethodPost, "/v1/proposals/7/vote", map[string]string{"support": "for"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["err"], "already voted")
}

func TestVotePreparesCall(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(t, http.MethodPost, "/v1/proposals/7/vote", map[string]string{"support": "against", "reason": "too early"})
	require.Equal(t, http.StatusOK, rec.Code)
	tx := body["tx"].(map[string]interface{})
	assert.Equal(t, "castVoteWithReason", tx["method"])
	assert.Equal(t, "0x0", tx["value"])
	assert.Equal(t, strings.ToLower(governorAddr.Hex()), tx["to"])
}

func TestVoteOnClosedProposal(t *testing.T) {
	e := newEnv(t)
	e.governor.Set("state", uint8(gov.StateDefeated))
	rec, _ := e.do(t, http.MethodPost, "/v1/proposals/7/vote", map[string]string{"support": "for"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProposalView(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(t, http.MethodGet, "/v1/proposals/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Active", body["stateLabel"])
	assert.Equal(t, true, body["canVote"])
	p := body["proposal"].(map[string]interface{})
	assert.Equal(t, "7", p["id"])

	rec, _ = e.do(t, http.MethodGet, "/v1/proposals/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposeBelowThreshold(t *testing.T) {
	e := newEnv(t)
	e.token.Set("getVotes", big.NewInt(5e17))
	form := map[string]string{"type": "signal", "title": "Fund the archive", "category": "heritage", "description": "Digitise the records."}
	rec, body := e.do(t, http.MethodPost, "/v1/proposals", form)
	require.Equal(t, http.StatusForbidden, rec.Code)
	threshold := body["threshold"].(map[string]interface{})
	assert.Equal(t, "1", threshold["formatted"])
}

func TestProposePrepared(t *testing.T) {
	e := newEnv(t)
	form := map[string]string{"type": "simple", "title": "Fund the archive", "category": "heritage", "description": "Digitise the records."}
	rec, body := e.do(t, http.MethodPost, "/v1/proposals", form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["proposalId"])
	assert.Contains(t, body["description"], "**Category:** heritage")
}

func TestMintPreparesPayableCall(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(t, http.MethodPost, "/v1/nft/mint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tx := body["tx"].(map[string]interface{})
	assert.Equal(t, hexutil.EncodeBig(big.NewInt(5e16)), tx["value"])

	e.nft.Set("totalSupply", big.NewInt(1000))
	e.deps.Reads.Evict("global")
	rec, _ = e.do(t, http.MethodPost, "/v1/nft/mint", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWalletRoutesNeedSession(t *testing.T) {
	e := newEnv(t)
	e.disconnected()
	rec, body := e.do(t, http.MethodPost, "/v1/delegate", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Connect Your Wallet", body["title"])
}

func TestRelayWithoutSubmitter(t *testing.T) {
	e := newEnv(t)
	rec, _ := e.do(t, http.MethodPost, "/v1/tx/relay", map[string]string{"rawTx": "0x01"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMintUncappedCollection(t *testing.T) {
	e := newEnv(t)
	e.nft.Set("totalSupply", big.NewInt(0)).Set("maxSupply", big.NewInt(0))
	rec, _ := e.do(t, http.MethodPost, "/v1/nft/mint", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenRoute(t *testing.T) {
	e := newEnv(t)
	e.nft.Set("ownerOf", alice).Set("tokenURI", "ipfs://meta/3").Set("isMember", true)
	e.disconnected()

	rec, body := e.do(t, http.MethodGet, "/v1/nft/tokens/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
	tok := body["value"].(map[string]interface{})
	assert.Equal(t, strings.ToLower(alice.Hex()), strings.ToLower(tok["owner"].(string)))
	assert.Equal(t, "ipfs://meta/3", tok["tokenUri"])
	assert.Equal(t, true, tok["ownerIsMember"])

	rec, _ = e.do(t, http.MethodGet, "/v1/nft/tokens/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type receiptBackend struct {
	receipts map[common.Hash]*types.Receipt
}

func (b *receiptBackend) SendTransaction(context.Context, *types.Transaction) error { return nil }

func (b *receiptBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	if r, ok := b.receipts[h]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func TestTxStatus(t *testing.T) {
	e := newEnv(t)
	mined := common.HexToHash("0x01")
	failed := common.HexToHash("0x02")
	be := &receiptBackend{receipts: map[common.Hash]*types.Receipt{
		mined:  {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(12)},
		failed: {Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(13)},
	}}
	e.deps.Submitter = chain.NewSubmitter(be, testChainID, "https://sepolia.etherscan.io")

	rec, body := e.do(t, http.MethodGet, "/v1/tx/"+mined.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, chain.TxConfirmed, body["status"])
	assert.EqualValues(t, 12, body["blockNumber"])
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+mined.Hex(), body["explorerUrl"])

	_, body = e.do(t, http.MethodGet, "/v1/tx/"+failed.Hex(), nil)
	assert.Equal(t, chain.TxReverted, body["status"])

	_, body = e.do(t, http.MethodGet, "/v1/tx/"+common.HexToHash("0x03").Hex()+"?wait=10ms", nil)
	assert.Equal(t, chain.TxPending, body["status"])

	rec, _ = e.do(t, http.MethodGet, "/v1/tx/0x1234", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = e.do(t, http.MethodGet, "/v1/tx/"+mined.Hex()+"?wait=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTxStatusWithoutSubmitter(t *testing.T) {
	e := newEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/v1/tx/"+common.HexToHash("0x01").Hex(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryReturnsReload(t *testing.T) {
	e := newEnv(t)
	r := webserver.New(e.deps)
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	rec, body := do(t, r, http.MethodGet, "/boom", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, true, body["reload"])
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t)
	e.cfg.RateLimit = 2
	e.deps.Auth = session.NewAuthenticator(session.AuthConfig{
		Domain: "localhost", URI: "http://localhost", ChainID: testChainID, Secret: []byte("test-secret"),
	}, session.NewMemoryNonces())
	r := webserver.New(e.deps)
	for i := 0; i < 2; i++ {
		rec, _ := do(t, r, http.MethodPost, "/v1/auth/challenge", map[string]string{"address": alice.Hex()}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := do(t, r, http.MethodPost, "/v1/auth/challenge", map[string]string{"address": alice.Hex()}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSignInFlow(t *testing.T) {
	e := newEnv(t)
	e.deps.Sessions = nil
	e.deps.Auth = session.NewAuthenticator(session.AuthConfig{
		Domain: "localhost", URI: "http://localhost", ChainID: testChainID, Secret: []byte("test-secret"),
	}, session.NewMemoryNonces())
	r := webserver.New(e.deps)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	rec, body := do(t, r, http.MethodPost, "/v1/auth/challenge", map[string]string{"address": addr.Hex()}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	msg := body["message"].(string)

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	sig[64] += 27

	rec, body = do(t, r, http.MethodPost, "/v1/auth/verify", map[string]string{"message": msg, "signature": hexutil.Encode(sig)}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["token"].(string)

	rec, body = do(t, r, http.MethodGet, "/v1/session", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, true, sess["isConnected"])
	assert.Equal(t, strings.ToLower(addr.Hex()), sess["address"])
	assert.Equal(t, gov.TruncateAddress(addr.Hex(), 6, 4), body["displayName"])

	rec, _ = do(t, r, http.MethodPost, "/v1/auth/verify", map[string]string{"message": msg, "signature": hexutil.Encode(sig)}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = do(t, r, http.MethodGet, "/v1/session", nil, "not-a-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["session"].(map[string]interface{})["isConnected"])
}

func TestAdminMembersCRUD(t *testing.T) {
	e := newEnv(t)
	db, err := data.Open("", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	repos := data.NewRepositories(db)
	e.deps.Repos = &repos
	r := webserver.New(e.deps)

	rec, body := do(t, r, http.MethodPost, "/v1/admin/members", map[string]string{"address": alice.Hex(), "displayName": "alice", "tier": "silver"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Silver", body["tier"])
	id := body["id"].(float64)

	rec, body = do(t, r, http.MethodPut, fmt.Sprintf("/v1/admin/members/%d", int(id)), map[string]string{"role": "admin"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", body["role"])

	rec, _ = do(t, r, http.MethodPut, "/v1/admin/members/999", map[string]string{"role": "admin"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, r, http.MethodGet, "/v1/admin/members", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["members"], 1)

	rec, _ = do(t, r, http.MethodPost, "/v1/admin/treasury", map[string]string{"recipient": alice.Hex(), "amount": "-1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, body = do(t, r, http.MethodPost, "/v1/admin/treasury", map[string]string{"recipient": alice.Hex(), "amount": "1.5", "purpose": "archive"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1.5", body["amount"])
}

func TestAdminStorageMissing(t *testing.T) {
	e := newEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/v1/admin/members", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
