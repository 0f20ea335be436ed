// Package jwtmw issues bearer tokens and provides the Gin middleware that
// authenticates requests carrying them.
package jwtmw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"account_backend/internal/feature/account/domain/entity"
)

const (
	ContextAccountID = "accountID"
	ContextRole      = "role"
)

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// AuthRequired returns a Gin middleware that validates bearer tokens.
// A missing or malformed credential is answered with 401, a presented but
// rejected token with 403.
func AuthRequired(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get Authorization header
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrTokenMissing.Error()})
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		// 2. Verify signature, expiry and claims
		claims, err := v.Verify(tokenStr)
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenMissing):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrTokenMissing.Error()})
			return
		case errors.Is(err, ErrTokenMalformed):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrTokenMalformed.Error()})
			return
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrTokenInvalid.Error()})
			return
		}

		// 3. Expose the principal to handlers
		c.Set(ContextAccountID, claims.AccountID())
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// Principal returns the authenticated account id and role set by AuthRequired.
func Principal(c *gin.Context) (string, entity.Role, bool) {
	id := c.GetString(ContextAccountID)
	v, exists := c.Get(ContextRole)
	role, ok := v.(entity.Role)
	if id == "" || !exists || !ok {
		return "", "", false
	}
	return id, role, true
}
