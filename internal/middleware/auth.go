package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/clients"
)

// Authenticator resolves a bearer token to an account identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (clients.Identity, error)
}

// AuthMiddleware validates the Authorization header against the core API and
// stores the caller's identity on the context. Banned or deleted accounts are
// rejected with 403 on every endpoint.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, clients.ErrAccountInactive) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is not active"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", identity.ID)
		c.Set("userName", identity.Name)
		c.Next()
	}
}
