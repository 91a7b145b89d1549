package webserver

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/reads"
)

// Membership returns the caller's membership and whether to offer minting.
func (s *Server) Membership(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.Session(ctx)
	addr, ok := sess.Account()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"connected": false, "showMintCTA": false})
		return
	}
	snap, err := s.reads.Membership(ctx, addr)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":   true,
		"membership":  snap,
		"showMintCTA": snap.Ready() && !snap.Value.IsMember,
	})
}

func (s *Server) Collection(c *gin.Context) {
	snap, err := s.reads.Collection(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Mint prepares a payable mint at the current contract price.
func (s *Server) Mint(c *gin.Context) {
	var req struct {
		Tier string `json:"tier"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	var tier *gov.Tier
	if req.Tier != "" {
		t, err := gov.ParseTier(req.Tier)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		tier = &t
	}

	ctx := c.Request.Context()
	sess := s.sessions.Session(ctx)
	col, err := s.reads.Collection(ctx)
	if err != nil {
		writeErr(c, err)
		return
	}
	switch col.Status {
	case reads.StatusUnconfigured:
		writeErr(c, governance.ErrNotConfigured)
		return
	case reads.StatusUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "collection state unavailable, try again"})
		return
	}
	price, _ := new(big.Int).SetString(col.Value.MintPrice.Raw, 10)

	tx, err := s.builder.Mint(sess, price, col.Value.SoldOut, tier)
	addr, _ := sess.Account()
	ev := data.ActionEvent{Action: "mint", Account: addr.Hex(), Method: tx.Method, To: tx.To.Hex(), Outcome: "prepared"}
	if err != nil {
		ev.Outcome = "rejected"
		s.publish(ctx, ev)
		writeErr(c, err)
		return
	}
	s.publish(ctx, ev)
	c.JSON(http.StatusOK, gin.H{"tx": tx, "price": col.Value.MintPrice})
}

// Token shows the holder and metadata URI of one membership NFT.
func (s *Server) Token(c *gin.Context) {
	id, ok := new(big.Int).SetString(c.Param("id"), 10)
	if !ok || id.Sign() < 0 {
		badRequest(c, "token id must be a non-negative integer")
		return
	}
	snap, err := s.reads.Token(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
