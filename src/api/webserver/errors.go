package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

// statusClientClosed is the nginx convention for a request the client
// abandoned.
const statusClientClosed = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, governance.ErrNotConnected),
		errors.Is(err, session.ErrBadSignature),
		errors.Is(err, session.ErrNonceExpired),
		errors.Is(err, session.ErrMessageExpired),
		errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, governance.ErrInsufficientVotingPower),
		errors.Is(err, session.ErrDomainMismatch),
		errors.Is(err, session.ErrWrongChain):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrProposalNotActive),
		errors.Is(err, governance.ErrAlreadyVoted),
		errors.Is(err, governance.ErrWrongState),
		errors.Is(err, governance.ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, governance.ErrInvalidInput),
		errors.Is(err, session.ErrMalformedMessage),
		errors.Is(err, data.ErrInvalid),
		errors.Is(err, chain.ErrBadTransaction),
		errors.Is(err, chain.ErrWrongChain):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case reads.IsCancelled(err):
		return statusClientClosed
	}
	return http.StatusInternalServerError
}

func writeErr(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request error")
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"err": "internal error"})
			return
		}
	}
	c.JSON(status, gin.H{"err": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"err": msg})
}
