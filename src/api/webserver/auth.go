package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/gov"
)

func (s *Server) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	addr, err := gov.ParseAddress(req.Address)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := s.auth.Challenge(c.Request.Context(), addr)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   msg.String(),
		"nonce":     msg.Nonce,
		"expiresAt": msg.ExpirationTime,
	})
}

func (s *Server) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message"   binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	token, sess, err := s.auth.Verify(c.Request.Context(), req.Message, req.Signature)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "session": sess})
}

// Session reports the caller's wallet session and display name.
func (s *Server) Session(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.Session(ctx)
	resp := gin.H{"session": sess}
	if addr, ok := sess.Account(); ok {
		resp["displayName"] = s.reads.DisplayName(ctx, addr)
	}
	c.JSON(http.StatusOK, resp)
}
