package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"librarium/internal/pkg/jwt"
	"librarium/internal/pkg/response"
)

// AccessValidator is the liveness+signature check the filter delegates to.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, value string) (*jwt.Claims, error)
}

// RequireAuth decodes the bearer token, validates it against the blacklist,
// the token store and the signature, and puts the subject on the context.
// Any validation or store error rejects the request: validation fails
// closed, never open.
func RequireAuth(validator AccessValidator, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := extractBearer(c)
		if value == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or malformed Authorization header")
			c.Abort()
			return
		}

		claims, err := validator.ValidateAccess(c.Request.Context(), value)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			c.Abort()
			return
		}

		user, err := users.ResolveUser(c.Request.Context(), claims.Subject)
		if err != nil || user == 0 {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown subject")
			c.Abort()
			return
		}

		role := ""
		if len(claims.Roles) > 0 {
			role = claims.Roles[0]
		}

		c.Set("user_id", user)
		c.Set("username", claims.Subject)
		c.Set("role", role)
		c.Next()
	}
}

// UserResolver maps a token subject to a user id. Backed by the user
// snapshot cache so the hot path stays off the database.
type UserResolver interface {
	ResolveUser(ctx context.Context, username string) (int64, error)
}

func extractBearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
