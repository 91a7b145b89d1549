package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/gate"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/reads"
)

type accessResult struct {
	gate.Decision
	Title      string                               `json:"title,omitempty"`
	Message    string                               `json:"message,omitempty"`
	Membership reads.Snapshot[gov.MembershipRecord] `json:"membership"`
}

// decide evaluates the access gate for the caller. ok is false when the
// membership read is unavailable and no decision can be made.
func (s *Server) decide(ctx context.Context, required *gov.Tier) (accessResult, bool, error) {
	sess := s.sessions.Session(ctx)
	in := gate.Input{
		Configured:   s.reads.Chain().Membership.Configured(),
		Connected:    sess.Connected,
		RequiredTier: required,
	}
	var res accessResult
	if !in.Configured {
		s.bypassOnce.Do(func() {
			s.log.WithField("audit", "gate_bypass").Warn("membership contract not configured, access gate allows every request")
		})
	}
	if addr, ok := sess.Account(); ok && in.Configured {
		snap, err := s.reads.Membership(ctx, addr)
		if err != nil {
			return res, false, err
		}
		res.Membership = snap
		if !snap.Ready() {
			return res, false, nil
		}
		in.IsMember = snap.Value.IsMember
		in.Tier = snap.Value.Tier
	}
	d := gate.Decide(in)
	s.metrics.Decision(string(d.Kind))
	res.Decision, res.Title, res.Message = d, d.Title(), d.Message()
	return res, true, nil
}

func gateStatus(k gate.Kind) int {
	if k == gate.RequireWallet {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

// RequireAccess lets the request through only when the gate allows it.
// A nil tier admits any member.
func (s *Server) RequireAccess(required *gov.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, ok, err := s.decide(c.Request.Context(), required)
		if err != nil {
			writeErr(c, err)
			c.Abort()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"err": "membership status unavailable, try again"})
			return
		}
		if !res.Decision.Allowed() {
			c.AbortWithStatusJSON(gateStatus(res.Decision.Kind), res)
			return
		}
		c.Next()
	}
}

// RequireWallet only needs a connected session.
func (s *Server) RequireWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.sessions.Session(c.Request.Context()).Connected {
			d := gate.Decision{Kind: gate.RequireWallet}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"decision": d.Kind, "title": d.Title(), "message": d.Message(),
			})
			return
		}
		c.Next()
	}
}

// Access answers GET /v1/access?tier=Gold.
func (s *Server) Access(c *gin.Context) {
	var required *gov.Tier
	if raw := c.Query("tier"); raw != "" {
		t, err := gov.ParseTier(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		required = &t
	}
	res, ok, err := s.decide(c.Request.Context(), required)
	if err != nil {
		writeErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "membership status unavailable, try again", "membership": res.Membership})
		return
	}
	c.JSON(http.StatusOK, res)
}
