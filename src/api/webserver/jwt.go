package webserver

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/session"
)

// SessionMiddleware attaches the wallet session carried by the bearer
// token. A missing or invalid token yields a disconnected session.
func SessionMiddleware(auth *session.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.Disconnected()
		if h := c.GetHeader("Authorization"); auth != nil && strings.HasPrefix(h, "Bearer ") {
			if parsed, err := auth.ParseToken(h[7:]); err == nil {
				s = parsed
				c.Set("addr", s.Address.Hex())
			}
		}
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
		c.Next()
	}
}
