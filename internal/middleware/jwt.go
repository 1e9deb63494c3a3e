package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// RequireJWT authenticates a bearer token from the Authorization header.
func RequireJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, bearerToken)
}

// RequireWSAuth authenticates the ?token= query parameter. Browsers cannot
// set headers on a WebSocket upgrade.
func RequireWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, func(c *gin.Context) string { return c.Query("token") })
}

func authenticate(authService *service.AuthService, token func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := token(c)
		if raw == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		claims, err := authService.ValidateToken(raw)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims returns the claims set by RequireJWT or RequireWSAuth, or nil.
func GetClaims(c *gin.Context) *service.Claims {
	val, _ := c.Get(ContextKeyClaims)
	claims, _ := val.(*service.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
