package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poserp/accounting/internal/infrastructure/auth"
	"github.com/poserp/accounting/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTOrgIDKey    = "jwt_org_id"
	JWTUsernameKey = "jwt_username"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTAuthMiddleware validates bearer tokens and stores the claims in the
// request context. Paths in skipPaths pass through unauthenticated.
func JWTAuthMiddleware(jwtService *auth.JWTService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTOrgIDKey, claims.OrgID)
		c.Set(JWTUsernameKey, claims.Username)

		c.Next()
	}
}

// GetJWTOrgID returns the organization ID stored by the JWT middleware
func GetJWTOrgID(c *gin.Context) string {
	return c.GetString(JWTOrgIDKey)
}

// GetJWTUserID returns the user ID stored by the JWT middleware
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}
