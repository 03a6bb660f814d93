package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"session-gateway/pkg/identity"
)

// IdentityMiddleware resolves the caller's identity from a bearer token.
// Requests without an Authorization header proceed anonymously; requests with
// an invalid token are rejected.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		id, err := identity.Parse(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(identity.NewContext(c.Request.Context(), id))
		c.Next()
	}
}
