package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pgstay/internal/domain"
	"pgstay/internal/modules/identity"
	"pgstay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Resolver turns a bearer token into the caller's internal identity.
// *identity.Service implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

// Auth resolves the Authorization header and sets user_id, role and
// identity on the context. Websocket upgrades may pass the token as ?token=
// because browsers cannot set headers on them.
func Auth(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			} else {
				_ = c.Error(err)
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not resolve identity")
			}
			c.Abort()
			return
		}

		c.Set("user_id", id.UserID)
		c.Set("role", string(id.Role))
		c.Set("identity", id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if c.IsWebsocket() {
			if t := c.Query("token"); t != "" {
				return t, true
			}
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
