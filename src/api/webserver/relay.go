package webserver

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/data"
)

// Relay broadcasts a transaction the caller's wallet already signed.
func (s *Server) Relay(c *gin.Context) {
	if s.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "relay not configured"})
		return
	}
	var req struct {
		Action string `json:"action"`
		RawTx  string `json:"rawTx" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	raw, err := hexutil.Decode(req.RawTx)
	if err != nil {
		badRequest(c, "rawTx must be 0x-prefixed hex")
		return
	}
	action := req.Action
	if action == "" {
		action = "relay"
	}

	ctx := c.Request.Context()
	addr, _ := s.sessions.Session(ctx).Account()
	sub, err := s.submitter.Relay(ctx, raw)
	ev := data.ActionEvent{Action: action, Account: addr.Hex(), Outcome: "relayed"}
	if err != nil {
		ev.Outcome = "failed"
		s.publish(ctx, ev)
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"err": err.Error()})
		return
	}
	ev.TxHash = sub.Hash.Hex()
	s.publish(ctx, ev)
	c.JSON(http.StatusAccepted, sub)
}

// maxTxWait bounds how long a status request may hold its connection.
const maxTxWait = 30 * time.Second

// TxStatus reports whether a relayed transaction was mined or reverted.
// An optional ?wait= duration keeps polling until the receipt appears.
func (s *Server) TxStatus(c *gin.Context) {
	if s.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "relay not configured"})
		return
	}
	raw, err := hexutil.Decode(c.Param("hash"))
	if err != nil || len(raw) != common.HashLength {
		badRequest(c, "hash must be a 0x-prefixed 32-byte hex string")
		return
	}
	var wait time.Duration
	if w := c.Query("wait"); w != "" {
		if wait, err = time.ParseDuration(w); err != nil || wait < 0 {
			badRequest(c, "wait must be a non-negative duration")
			return
		}
		if wait > maxTxWait {
			wait = maxTxWait
		}
	}

	conf, err := s.submitter.Confirm(c.Request.Context(), common.BytesToHash(raw), wait)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conf)
}
