package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyRequired checks the static bearer key from configuration. An empty
// API_KEY disables the check.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	expected := []byte(s.cfg.APIKey)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}
