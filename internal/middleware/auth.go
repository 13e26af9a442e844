package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poil524/final-project-sub000/internal/response"
	"github.com/poil524/final-project-sub000/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for the verified principal.
	ContextKeyClaims = "claims"
)

// RequireRole validates the bearer token and requires the principal to
// hold one of the given roles. Identity is issued by the external
// collaborator; this middleware only verifies and extracts it.
func RequireRole(authService *service.AuthService, roles ...service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Set(ContextKeyClaims, claims)
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, roleErrCode(roles))
	}
}

// RequireWSAuth validates a token from the query param ?token=... for
// WebSocket upgrade requests, which cannot send headers.
func RequireWSAuth(authService *service.AuthService, roles ...service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Set(ContextKeyClaims, claims)
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, roleErrCode(roles))
	}
}

// GetClaims retrieves the verified principal from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func roleErrCode(roles []service.Role) response.ErrCode {
	if len(roles) != 1 {
		return response.ErrForbidden
	}
	switch roles[0] {
	case service.RoleStudent:
		return response.ErrStudentOnly
	case service.RoleTeacher:
		return response.ErrTeacherOnly
	case service.RoleAdmin:
		return response.ErrAdminOnly
	}
	return response.ErrForbidden
}

func extractAndValidateClaims(c *gin.Context, authService *service.AuthService) (*service.Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("authorization header or token query required")
	}

	return authService.ValidateToken(tokenStr)
}
