package middleware

import (
	"strings"

	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/apperror"
	"go-recruitment-intake/pkg/auth"
	"go-recruitment-intake/pkg/security"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware admits tokens carrying role=admin. The token is read
// from the Authorization header, or from the "token" query parameter because
// EventSource cannot set headers.
func AdminAuthMiddleware(verifier *auth.Verifier, secLogger *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Try to get token from Header
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			// 2. Fall back to the query parameter
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			reject(c, secLogger, "missing_token", "Authorization header or token query parameter required")
			return
		}

		claims, err := verifier.Parse(tokenString)
		if err != nil {
			reject(c, secLogger, err.Error(), "Invalid token")
			return
		}

		c.Set(string(domain.KeyAdminID), claims.Subject)
		c.Set(string(domain.KeyAdminEmail), claims.Email)
		c.Set(string(domain.KeyAdminRole), claims.Role)

		c.Next()
	}
}

func reject(c *gin.Context, secLogger *security.SecurityLogger, reason, message string) {
	secLogger.LogUnauthorizedAccess(
		c.Request.Context(),
		c.ClientIP(),
		c.GetHeader("User-Agent"),
		response.RequestID(c),
		c.FullPath(),
		reason,
	)
	abortWith(c, apperror.Unauthorized(message))
}
