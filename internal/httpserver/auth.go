package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims represents the JWT claims carried by admin dashboard tokens.
type AdminClaims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

const claimsContextKey = "admin_claims"

// AdminAuth creates a JWT authentication middleware for admin routes.
// Tokens must be HMAC-signed with the shared secret and presented as
// "Authorization: Bearer <token>".
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &AdminClaims{}, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(*AdminClaims)
		if !ok || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// GetAdminClaims extracts admin claims from the gin context.
func GetAdminClaims(c *gin.Context) (*AdminClaims, bool) {
	claims, exists := c.Get(claimsContextKey)
	if !exists {
		return nil, false
	}

	cl, ok := claims.(*AdminClaims)
	return cl, ok
}
