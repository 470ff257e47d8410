package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const maxIdempotencyKeyLength = 255

// idempotencyKeyFromHeader returns the caller's key for forwarding to the
// gateway, or "" so that the client generates one.
func idempotencyKeyFromHeader(c *gin.Context) string {
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(c.GetHeader("X-Idempotency-Key"))
	}
	if len(key) > maxIdempotencyKeyLength {
		return ""
	}
	return key
}
