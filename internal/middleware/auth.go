package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/token"
)

// ErrMissingAuthHeader is returned when no Authorization header is present.
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// ContextKeyAdminClaims is the gin context key the admin guard sets.
const ContextKeyAdminClaims = "admin_claims"

// AdminAuth returns a middleware that requires a valid admin-session JWT
// with the given role. Verified claims are stored in the request context.
func AdminAuth(codec *token.Codec, requiredRole string) gin.HandlerFunc {
	if codec == nil {
		panic("token codec cannot be nil for AdminAuth middleware")
	}
	return func(c *gin.Context) {
		tokenStr, err := BearerToken(c)
		if err != nil {
			logrus.Warn("AdminAuth middleware: missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header with Bearer token is required"})
			c.Abort()
			return
		}
		claims, err := codec.VerifyAdmin(tokenStr, requiredRole)
		if err != nil {
			logrus.WithError(err).Warn("AdminAuth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		c.Set(ContextKeyAdminClaims, claims)
		logrus.WithField("role", claims.Role).Debug("AdminAuth middleware: caller authenticated")
		c.Next()
	}
}

// BearerToken extracts the Bearer token from the Authorization header.
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("malformed Authorization header")
	}
	return parts[1], nil
}
