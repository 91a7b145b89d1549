package webserver

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

func (s *Server) Governance(c *gin.Context) {
	snap, err := s.reads.Governance(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// VotingPower returns the caller's votes, or those of ?address=.
func (s *Server) VotingPower(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		addr common.Address
		ok   bool
	)
	if raw := c.Query("address"); raw != "" {
		a, err := gov.ParseAddress(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		addr, ok = a, true
	} else {
		addr, ok = s.sessions.Session(ctx).Account()
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	snap, err := s.reads.VotingPower(ctx, addr)
	if err != nil {
		writeErr(c, err)
		return
	}
	resp := gin.H{"connected": true, "votingPower": snap}
	if snap.Ready() {
		resp["needsActivation"] = snap.Value.NeedsActivation()
		resp["selfDelegated"] = snap.Value.SelfDelegated(addr)
	}
	c.JSON(http.StatusOK, resp)
}

func proposalID(c *gin.Context) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(c.Param("id"), 10)
	if !ok || id.Sign() < 0 {
		badRequest(c, "proposal id must be a non-negative integer")
		return nil, false
	}
	return id, true
}

// loadProposal reads the proposal as seen by sess and writes the error
// response itself when it cannot.
func (s *Server) loadProposal(c *gin.Context, sess session.WalletSession) (reads.ProposalDetail, bool) {
	id, ok := proposalID(c)
	if !ok {
		return reads.ProposalDetail{}, false
	}
	var voter *common.Address
	if addr, ok := sess.Account(); ok {
		voter = &addr
	}
	snap, err := s.reads.Proposal(c.Request.Context(), id, voter)
	if err != nil {
		writeErr(c, err)
		return reads.ProposalDetail{}, false
	}
	switch snap.Status {
	case reads.StatusUnconfigured:
		writeErr(c, governance.ErrNotConfigured)
		return reads.ProposalDetail{}, false
	case reads.StatusUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "proposal state unavailable, try again"})
		return reads.ProposalDetail{}, false
	}
	return snap.Value, true
}

func (s *Server) Proposal(c *gin.Context) {
	sess := s.sessions.Session(c.Request.Context())
	p, ok := s.loadProposal(c, sess)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, governance.NewView(p.Proposal, p.Quorum, sess, time.Now()))
}

func (s *Server) Vote(c *gin.Context) {
	var req struct {
		Support string `json:"support" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	support, err := gov.ParseVoteSupport(req.Support)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	sess := s.sessions.Session(ctx)
	p, ok := s.loadProposal(c, sess)
	if !ok {
		return
	}
	tx, err := s.builder.Vote(sess, p.Proposal, support, req.Reason)
	s.respondTx(c, sess, "vote", p.ID, tx, err)
}

func (s *Server) Propose(c *gin.Context) {
	var form governance.ProposalForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err.Error())
		return
	}
	kind, err := governance.ParseProposalKind(string(form.Kind))
	if err != nil {
		writeErr(c, err)
		return
	}
	form.Kind = kind

	ctx := c.Request.Context()
	sess := s.sessions.Session(ctx)
	addr, _ := sess.Account()
	vp, err := s.reads.VotingPower(ctx, addr)
	if err != nil {
		writeErr(c, err)
		return
	}
	threshold, err := s.reads.ProposalThreshold(ctx)
	if err != nil {
		writeErr(c, err)
		return
	}
	if vp.Status == reads.StatusUnconfigured || threshold.Status == reads.StatusUnconfigured {
		writeErr(c, governance.ErrNotConfigured)
		return
	}
	if !vp.Ready() || !threshold.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "voting power unavailable, try again"})
		return
	}

	prepared, err := s.builder.Propose(sess, vp.Value.Votes, threshold.Value, form)
	if err != nil {
		s.publish(ctx, data.ActionEvent{Action: "propose", Account: addr.Hex(), Outcome: "rejected"})
		if errors.Is(err, governance.ErrInsufficientVotingPower) {
			c.JSON(http.StatusForbidden, gin.H{
				"err":       err.Error(),
				"votes":     gov.NewAmount(vp.Value.Votes, gov.EtherDecimals),
				"threshold": gov.NewAmount(threshold.Value, gov.EtherDecimals),
			})
			return
		}
		writeErr(c, err)
		return
	}
	s.publish(ctx, data.ActionEvent{
		Action: "propose", Account: addr.Hex(), ProposalID: prepared.ProposalID.String(),
		Method: prepared.Tx.Method, To: prepared.Tx.To.Hex(), Outcome: "prepared",
	})
	c.JSON(http.StatusOK, prepared)
}

func (s *Server) Delegate(c *gin.Context) {
	var req struct {
		Delegatee string `json:"delegatee"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	sess := s.sessions.Session(c.Request.Context())
	tx, err := s.builder.Delegate(sess, req.Delegatee)
	s.respondTx(c, sess, "delegate", nil, tx, err)
}

func (s *Server) Queue(c *gin.Context) {
	s.lifecycleAction(c, "queue", s.builder.Queue)
}

func (s *Server) Execute(c *gin.Context) {
	s.lifecycleAction(c, "execute", s.builder.Execute)
}

type lifecycleBuilder func(session.WalletSession, gov.ProposalState, governance.ExecutionRequest) (chain.TxRequest, error)

func (s *Server) lifecycleAction(c *gin.Context, action string, build lifecycleBuilder) {
	var req governance.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess := s.sessions.Session(c.Request.Context())
	p, ok := s.loadProposal(c, sess)
	if !ok {
		return
	}
	tx, err := build(sess, p.State, req)
	s.respondTx(c, sess, action, p.ID, tx, err)
}

// respondTx publishes the action outcome and writes the prepared call.
func (s *Server) respondTx(c *gin.Context, sess session.WalletSession, action string, id *big.Int, tx chain.TxRequest, err error) {
	addr, _ := sess.Account()
	ev := data.ActionEvent{Action: action, Account: addr.Hex(), Method: tx.Method, Outcome: "prepared"}
	if id != nil {
		ev.ProposalID = id.String()
	}
	if err != nil {
		ev.Outcome = "rejected"
		s.publish(c.Request.Context(), ev)
		writeErr(c, err)
		return
	}
	ev.To = tx.To.Hex()
	s.publish(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{"tx": tx})
}

// CreateDraft stores an off-chain draft for the caller.
func (s *Server) CreateDraft(c *gin.Context) {
	if s.repos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "storage not configured"})
		return
	}
	var form governance.ProposalForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err.Error())
		return
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		writeErr(c, err)
		return
	}
	addr, _ := s.sessions.Session(c.Request.Context()).Account()
	d := &data.ProposalDraft{
		Author:      addr.Hex(),
		Kind:        string(form.Kind),
		Title:       form.Title,
		Category:    form.Category,
		Description: form.Description,
	}
	if err := s.repos.Proposals.Create(c.Request.Context(), d); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}
